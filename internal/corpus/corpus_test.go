package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/comeback-bonus/internal/domain"
)

const twoGames = `[Event "Arena"]
[Site "https://lichess.org/aaaa1111"]
[White "alice"]
[Black "bob"]
[Result "1-0"]

1. e4 {[%clk 0:03:00]} e5 2. Nf3 $1 Nc6 (2... d6 3. d4) 3. Bb5 a6?! 1-0

[Event "Arena"]
[Site "https://lichess.org/bbbb2222"]
[White "carol"]
[Black "alice"]
[Result "1/2-1/2"]

1.d4 d5 2.c4 dxc4 3.e4 Qxd4+ ; trailing comment
4.Qxd4 1/2-1/2
`

func TestParsePGNSplitsGamesAndHeaders(t *testing.T) {
	games, err := ParsePGN(strings.NewReader(twoGames))
	require.NoError(t, err)
	require.Len(t, games, 2)

	g := games[0]
	assert.Equal(t, 0, g.Index)
	assert.Equal(t, "https://lichess.org/aaaa1111", g.Reference)
	assert.Equal(t, "alice", g.White)
	assert.Equal(t, "bob", g.Black)
	assert.Equal(t, domain.WhiteWon, g.Result)
	assert.Equal(t, []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6"}, g.Moves)

	g = games[1]
	assert.Equal(t, "carol", g.White)
	assert.Equal(t, domain.Draw, g.Result)
	assert.Equal(t, []string{"d4", "d5", "c4", "dxc4", "e4", "Qxd4", "Qxd4"}, g.Moves)
}

func TestParsePGNMissingHeader(t *testing.T) {
	_, err := ParsePGN(strings.NewReader("[White \"a\"]\n[Result \"1-0\"]\n\n1. e4 1-0\n"))
	assert.True(t, errors.Is(err, ErrMissingHeader))
}

func TestParsePGNUnknownResultKeptAsZero(t *testing.T) {
	games, err := ParsePGN(strings.NewReader("[White \"a\"]\n[Black \"b\"]\n[Result \"*\"]\n\n1. e4 *\n"))
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, domain.Result(""), games[0].Result)
	assert.Equal(t, "*", games[0].Tags["Result"])
	assert.Equal(t, "game-1", games[0].Reference)
}

func TestTokenizeMovetextCastlingAndNumbers(t *testing.T) {
	got := TokenizeMovetext("12... 0-0 13. O-O-O# 14.exd6 e.p. $14 0-1")
	assert.Equal(t, []string{"O-O", "O-O-O", "exd6"}, got)
}

func TestCountStructuredNDJSONAndArray(t *testing.T) {
	n, err := CountStructured(strings.NewReader("{\"id\":\"a\"}\n\n{\"id\":\"b\"}\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = CountStructured(strings.NewReader(`[{"id":"a"},{"id":"b"},{"id":"c"}]`))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = CountStructured(strings.NewReader("{\"id\":\n"))
	assert.Error(t, err)
}

func TestLoadFilesCountMismatch(t *testing.T) {
	dir := t.TempDir()
	pgnPath := filepath.Join(dir, "games.pgn")
	jsonPath := filepath.Join(dir, "games.ndjson")
	require.NoError(t, os.WriteFile(pgnPath, []byte(twoGames), 0o644))
	require.NoError(t, os.WriteFile(jsonPath, []byte("{\"id\":\"aaaa1111\"}\n"), 0o644))

	_, err := LoadFiles(pgnPath, jsonPath)
	assert.ErrorIs(t, err, ErrCountMismatch)

	require.NoError(t, os.WriteFile(jsonPath, []byte("{\"id\":\"aaaa1111\"}\n{\"id\":\"bbbb2222\"}\n"), 0o644))
	games, err := LoadFiles(pgnPath, jsonPath)
	require.NoError(t, err)
	assert.Len(t, games, 2)
}

func TestParsePGNCommentWrappedOntoBracketLine(t *testing.T) {
	pgn := "[White \"alice\"]\n[Black \"bob\"]\n[Result \"1-0\"]\n\n" +
		"1. e4 {a comment\n[%clk 0:03:00] more} e5 2. Nf3 1-0\n\n" +
		"[White \"carol\"]\n[Black \"dave\"]\n[Result \"0-1\"]\n\n1. d4 d5 0-1\n"

	games, err := ParsePGN(strings.NewReader(pgn))
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, []string{"e4", "e5", "Nf3"}, games[0].Moves)
	assert.Equal(t, "carol", games[1].White)
	assert.Equal(t, []string{"d4", "d5"}, games[1].Moves)
}

func TestParsePGNStrayBracketInMovetextIsNotFatal(t *testing.T) {
	pgn := "[White \"alice\"]\n[Black \"bob\"]\n[Result \"1-0\"]\n\n1. e4 e5\n[junk] 2. Nf3 1-0\n"
	games, err := ParsePGN(strings.NewReader(pgn))
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Contains(t, games[0].Moves, "[junk]")
}

func TestParsePGNChessComReferences(t *testing.T) {
	pgn := "[Site \"Chess.com\"]\n[White \"alice\"]\n[Black \"bob\"]\n[Result \"1-0\"]\n" +
		"[Link \"https://www.chess.com/game/live/111\"]\n\n1. e4 1-0\n\n" +
		"[Site \"Chess.com\"]\n[White \"alice\"]\n[Black \"carol\"]\n[Result \"1-0\"]\n" +
		"[Link \"https://www.chess.com/game/live/222\"]\n\n1. d4 1-0\n\n" +
		"[Site \"Chess.com\"]\n[White \"bob\"]\n[Black \"carol\"]\n[Result \"0-1\"]\n\n1. c4 0-1\n"

	games, err := ParsePGN(strings.NewReader(pgn))
	require.NoError(t, err)
	require.Len(t, games, 3)
	assert.Equal(t, "https://www.chess.com/game/live/111", games[0].Reference)
	assert.Equal(t, "https://www.chess.com/game/live/222", games[1].Reference)
	assert.Equal(t, "game-3", games[2].Reference)
}

func TestParsePGNDuplicateReferencesAreSuffixed(t *testing.T) {
	header := "[Site \"https://lichess.org/study/abcd\"]\n[White \"alice\"]\n[Black \"bob\"]\n[Result \"1-0\"]\n\n"
	games, err := ParsePGN(strings.NewReader(header + "1. e4 1-0\n\n" + header + "1. d4 1-0\n"))
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, "https://lichess.org/study/abcd", games[0].Reference)
	assert.Equal(t, "https://lichess.org/study/abcd#2", games[1].Reference)
}
