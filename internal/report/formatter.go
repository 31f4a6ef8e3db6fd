package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/park285/comeback-bonus/internal/bonus"
	"github.com/park285/comeback-bonus/internal/msgcat"
	"github.com/park285/comeback-bonus/internal/pipeline"
	"github.com/park285/comeback-bonus/internal/replay"
)

// Formatter renders run results as terminal text using catalog templates.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) Report(r *pipeline.Report) (string, error) {
	if r == nil {
		return "", fmt.Errorf("nil report")
	}
	var sb strings.Builder

	if err := f.line(&sb, "leaderboard.title", map[string]any{"Players": len(r.Standings), "Games": r.Games}); err != nil {
		return "", err
	}
	if len(r.Standings) == 0 {
		if err := f.line(&sb, "leaderboard.empty", nil); err != nil {
			return "", err
		}
	} else {
		if err := f.line(&sb, "leaderboard.header", nil); err != nil {
			return "", err
		}
		for _, s := range r.Standings {
			row := map[string]any{"Rank": s.Rank, "Player": s.Player, "Points": s.Points, "Awards": s.Awards}
			if err := f.line(&sb, "leaderboard.row", row); err != nil {
				return "", err
			}
		}
	}

	if len(r.Failures) > 0 {
		sb.WriteString("\n")
		if err := f.line(&sb, "failures.title", map[string]any{"Count": len(r.Failures)}); err != nil {
			return "", err
		}
		for _, fl := range r.Failures {
			row := map[string]any{
				"Index":     fl.Index + 1,
				"Reference": fl.Reference,
				"White":     fl.White,
				"Black":     fl.Black,
				"Reason":    fl.Reason,
			}
			if err := f.line(&sb, "failures.row", row); err != nil {
				return "", err
			}
		}
	}

	sb.WriteString("\n")
	totals := map[string]any{"Replayed": r.Replayed, "Games": r.Games, "Awarded": r.Awarded, "RunID": r.RunID}
	if err := f.line(&sb, "summary.totals", totals); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Trace renders a per-ply material table; rows where the mover trails by the
// bonus threshold are starred.
func (f *Formatter) Trace(plies []replay.Ply) (string, error) {
	var sb strings.Builder
	if err := f.line(&sb, "trace.header", nil); err != nil {
		return "", err
	}
	for _, p := range plies {
		deficit := p.Material.Deficit(p.Mover)
		row := map[string]any{
			"Number":   p.Number,
			"Side":     p.Mover.String(),
			"SAN":      p.SAN,
			"White":    p.Material.White,
			"Black":    p.Material.Black,
			"Deficit":  deficit,
			"Eligible": deficit >= bonus.Threshold,
		}
		if err := f.line(&sb, "trace.row", row); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

func (f *Formatter) Write(w io.Writer, r *pipeline.Report) error {
	text, err := f.Report(r)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

func (f *Formatter) line(sb *strings.Builder, key string, data any) error {
	out, err := f.cat.Render(key, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", key, err)
	}
	sb.WriteString(out)
	sb.WriteString("\n")
	return nil
}
