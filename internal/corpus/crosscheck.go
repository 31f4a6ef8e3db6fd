package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/park285/comeback-bonus/internal/domain"
)

var ErrCountMismatch = errors.New("pgn and structured game counts differ")

// CountStructured counts games in a structured export, either NDJSON (one
// object per line) or a single JSON array.
func CountStructured(r io.Reader) (int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read structured export: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, nil
	}
	if raw[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return 0, fmt.Errorf("decode structured array: %w", err)
		}
		return len(items), nil
	}

	count := 0
	for i, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			return 0, fmt.Errorf("structured export line %d: invalid json", i+1)
		}
		count++
	}
	return count, nil
}

func CrossCheck(pgnCount, structuredCount int) error {
	if pgnCount != structuredCount {
		return fmt.Errorf("%w: pgn=%d structured=%d", ErrCountMismatch, pgnCount, structuredCount)
	}
	return nil
}

// LoadFiles parses the PGN corpus and, when structuredPath is set, cross-checks
// its game count against the structured export.
func LoadFiles(pgnPath, structuredPath string) ([]domain.GameRecord, error) {
	if strings.TrimSpace(pgnPath) == "" {
		return nil, fmt.Errorf("pgn path is required")
	}
	f, err := os.Open(pgnPath)
	if err != nil {
		return nil, fmt.Errorf("open pgn: %w", err)
	}
	defer f.Close()

	games, err := ParsePGN(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pgnPath, err)
	}

	if strings.TrimSpace(structuredPath) == "" {
		return games, nil
	}
	sf, err := os.Open(structuredPath)
	if err != nil {
		return nil, fmt.Errorf("open structured export: %w", err)
	}
	defer sf.Close()

	n, err := CountStructured(sf)
	if err != nil {
		return nil, err
	}
	if err := CrossCheck(len(games), n); err != nil {
		return nil, err
	}
	return games, nil
}
