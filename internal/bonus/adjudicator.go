package bonus

import (
	"github.com/park285/comeback-bonus/internal/domain"
)

const (
	DrawPoints         = 1
	WinPoints          = 3
	DisqualifiedPoints = 3
)

type AdjudicationInput struct {
	Eligibility       Eligibility
	Result            domain.Result
	Reference         string
	White             string
	Black             string
	BlackDisqualified bool
}

// Entry is one award destined for a player's ledger.
type Entry struct {
	Player string
	Side   domain.Side
	Award  domain.Award
}

// Adjudicate maps eligibility and result to zero, one or two awards, White first.
//
// When Black is the disqualified account every eligible side is paid
// DisqualifiedPoints whatever the recorded result says.
func Adjudicate(in AdjudicationInput) []Entry {
	var out []Entry
	for _, side := range []domain.Side{domain.White, domain.Black} {
		if !in.Eligibility.Of(side) {
			continue
		}
		points := sidePoints(in, side)
		if points == 0 {
			continue
		}
		player := in.White
		if side == domain.Black {
			player = in.Black
		}
		out = append(out, Entry{
			Player: player,
			Side:   side,
			Award:  domain.Award{Points: points, GameReference: in.Reference},
		})
	}
	return out
}

func sidePoints(in AdjudicationInput, side domain.Side) int {
	if in.BlackDisqualified {
		return DisqualifiedPoints
	}
	switch {
	case in.Result.IsDraw():
		return DrawPoints
	case in.Result.Favors(side):
		return WinPoints
	default:
		return 0
	}
}
