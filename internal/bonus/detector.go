package bonus

import (
	"github.com/park285/comeback-bonus/internal/domain"
	"github.com/park285/comeback-bonus/internal/replay"
)

// Threshold is the material deficit that makes a side eligible.
const Threshold = 3

// Eligibility records which sides fell Threshold or more behind on their own turn.
type Eligibility struct {
	White bool
	Black bool
}

func (e Eligibility) Of(side domain.Side) bool {
	if side == domain.White {
		return e.White
	}
	return e.Black
}

func (e Eligibility) Both() bool { return e.White && e.Black }

func (e Eligibility) Any() bool { return e.White || e.Black }

// Detector folds a game's plies into Eligibility. The zero value is ready to use.
type Detector struct {
	flags Eligibility
	// first ply number at which each side became eligible, 0 if never
	whiteAt int
	blackAt int
}

// Observe evaluates the mover's deficit after its own ply and reports whether
// both sides are now eligible.
func (d *Detector) Observe(p replay.Ply) bool {
	if d.flags.Of(p.Mover) {
		return d.flags.Both()
	}
	if p.Material.Deficit(p.Mover) >= Threshold {
		if p.Mover == domain.White {
			d.flags.White = true
			d.whiteAt = p.Number
		} else {
			d.flags.Black = true
			d.blackAt = p.Number
		}
	}
	return d.flags.Both()
}

func (d *Detector) Flags() Eligibility { return d.flags }

// FirstEligiblePly is the ply at which side first qualified, or 0.
func (d *Detector) FirstEligiblePly(side domain.Side) int {
	if side == domain.White {
		return d.whiteAt
	}
	return d.blackAt
}

// Detection is the outcome of replaying one game.
type Detection struct {
	Eligibility Eligibility
	WhiteAt     int
	BlackAt     int
	Plies       int
}

// DetectGame replays every move of game. The replay is not cut short once both
// flags are set so that an illegal tail still surfaces as replay.ErrMalformedGame.
func DetectGame(r *replay.Replayer, game domain.GameRecord) (Detection, error) {
	var d Detector
	plies := 0
	err := r.Replay(game.Moves, func(p replay.Ply) bool {
		plies++
		d.Observe(p)
		return true
	})
	if err != nil {
		return Detection{}, err
	}
	return Detection{
		Eligibility: d.Flags(),
		WhiteAt:     d.whiteAt,
		BlackAt:     d.blackAt,
		Plies:       plies,
	}, nil
}
