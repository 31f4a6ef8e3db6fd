package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/park285/comeback-bonus/internal/domain"
)

var ErrMissingHeader = errors.New("missing required PGN header")

var (
	tagRegex        = regexp.MustCompile(`^\[([A-Za-z0-9_]+)\s+"((?:[^"\\]|\\.)*)"\]$`)
	moveNumberRegex = regexp.MustCompile(`^[0-9]+\.+`)
	tagUnescaper    = strings.NewReplacer(`\"`, `"`, `\\`, `\`)
	annotationTrim  = "!?+#"
)

var resultTokens = map[string]struct{}{
	"1-0":     {},
	"0-1":     {},
	"1/2-1/2": {},
	"*":       {},
}

// ParsePGN splits a multi-game PGN export into game records. Move legality is
// not checked here.
func ParsePGN(r io.Reader) ([]domain.GameRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		games    []domain.GameRecord
		tags     map[string]string
		movetext strings.Builder
		line     int
	)

	flush := func() error {
		if tags == nil && strings.TrimSpace(movetext.String()) == "" {
			return nil
		}
		g, err := buildRecord(len(games), tags, movetext.String())
		if err != nil {
			return err
		}
		games = append(games, g)
		tags = nil
		movetext.Reset()
		return nil
	}

	inComment := false
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if !inComment && strings.HasPrefix(text, "%") {
			continue
		}
		if !inComment && strings.HasPrefix(text, "[") {
			m := tagRegex.FindStringSubmatch(text)
			inMovetext := strings.TrimSpace(movetext.String()) != ""
			switch {
			case m == nil && !inMovetext:
				return nil, fmt.Errorf("line %d: malformed tag pair %q", line, text)
			case m != nil:
				if inMovetext {
					if err := flush(); err != nil {
						return nil, err
					}
				}
				if tags == nil {
					tags = make(map[string]string)
				}
				tags[m[1]] = tagUnescaper.Replace(m[2])
				continue
			}
			// A stray bracket inside movetext is left to the replayer.
		}
		if text == "" {
			continue
		}
		movetext.WriteString(text)
		movetext.WriteByte('\n')
		inComment = commentOpenAfter(text, inComment)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pgn: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	uniqueReferences(games)
	return games, nil
}

// commentOpenAfter reports whether a {...} comment is still open at the end
// of a movetext line.
func commentOpenAfter(text string, open bool) bool {
	for _, c := range text {
		switch {
		case open:
			if c == '}' {
				open = false
			}
		case c == '{':
			open = true
		case c == ';':
			return false
		}
	}
	return open
}

// gameReference prefers the per-game Link, then a URL-valued Site. Exports
// such as Chess.com put a constant site name in Site.
func gameReference(number int, tags map[string]string) string {
	if link := strings.TrimSpace(tags["Link"]); link != "" {
		return link
	}
	if site := strings.TrimSpace(tags["Site"]); isURL(site) {
		return site
	}
	return fmt.Sprintf("game-%d", number)
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// uniqueReferences suffixes repeated references with the game number so every
// award points at exactly one game.
func uniqueReferences(games []domain.GameRecord) {
	seen := make(map[string]struct{}, len(games))
	for i := range games {
		ref := games[i].Reference
		if _, dup := seen[ref]; dup {
			ref = fmt.Sprintf("%s#%d", ref, games[i].Index+1)
		}
		seen[ref] = struct{}{}
		games[i].Reference = ref
	}
}

func buildRecord(index int, tags map[string]string, movetext string) (domain.GameRecord, error) {
	number := index + 1
	if tags == nil {
		tags = map[string]string{}
	}
	for _, key := range []string{"White", "Black", "Result"} {
		if strings.TrimSpace(tags[key]) == "" {
			return domain.GameRecord{}, fmt.Errorf("game %d: %w: %s", number, ErrMissingHeader, key)
		}
	}

	ref := gameReference(number, tags)

	// An unparseable result is kept as the zero Result for the caller to report.
	result, _ := domain.ParseResult(tags["Result"])

	return domain.GameRecord{
		Index:     index,
		Reference: ref,
		White:     strings.TrimSpace(tags["White"]),
		Black:     strings.TrimSpace(tags["Black"]),
		Result:    result,
		Moves:     TokenizeMovetext(movetext),
		Tags:      tags,
	}, nil
}

// TokenizeMovetext extracts SAN tokens from the mainline, dropping move numbers,
// comments, NAGs, variations, annotation glyphs and the game termination marker.
func TokenizeMovetext(movetext string) []string {
	var (
		clean strings.Builder
		depth int
	)
	runes := []rune(movetext)
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; {
		case c == '{':
			for i < len(runes) && runes[i] != '}' {
				i++
			}
			clean.WriteByte(' ')
		case c == ';':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			clean.WriteByte(' ')
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
			clean.WriteByte(' ')
		case depth > 0:
		default:
			clean.WriteRune(c)
		}
	}

	var moves []string
	for _, tok := range strings.Fields(clean.String()) {
		tok = moveNumberRegex.ReplaceAllString(tok, "")
		if tok == "" || strings.HasPrefix(tok, "$") || tok == "e.p." {
			continue
		}
		if _, ok := resultTokens[tok]; ok {
			continue
		}
		tok = strings.TrimRight(tok, annotationTrim)
		if tok == "" {
			continue
		}
		switch tok {
		case "0-0":
			tok = "O-O"
		case "0-0-0":
			tok = "O-O-O"
		}
		moves = append(moves, tok)
	}
	return moves
}
