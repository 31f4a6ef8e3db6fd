package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownResult = errors.New("unknown game result")

// Side identifies the player to move.
type Side int

const (
	White Side = iota
	Black
)

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

func (s Side) String() string {
	if s == White {
		return "white"
	}
	return "black"
}

// Result is the PGN result token of a finished game.
type Result string

const (
	WhiteWon Result = "1-0"
	BlackWon Result = "0-1"
	Draw     Result = "1/2-1/2"
)

func ParseResult(raw string) (Result, error) {
	switch r := Result(strings.TrimSpace(raw)); r {
	case WhiteWon, BlackWon, Draw:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownResult, raw)
	}
}

func (r Result) IsDraw() bool { return r == Draw }

// Winner reports the winning side; ok is false for draws.
func (r Result) Winner() (Side, bool) {
	switch r {
	case WhiteWon:
		return White, true
	case BlackWon:
		return Black, true
	default:
		return White, false
	}
}

// Favors reports whether the result is a win for side.
func (r Result) Favors(side Side) bool {
	w, ok := r.Winner()
	return ok && w == side
}

type GameRecord struct {
	Index     int
	Reference string
	White     string
	Black     string
	Result    Result
	Moves     []string
	Tags      map[string]string
}

func (g GameRecord) Player(side Side) string {
	if side == White {
		return g.White
	}
	return g.Black
}

type Award struct {
	Points        int    `json:"points"`
	GameReference string `json:"game_ref"`
}

// Player is a ledger identity. Excluded players accrue awards but never rank.
type Player struct {
	Name     string `json:"name"`
	Excluded bool   `json:"excluded,omitempty"`
}
