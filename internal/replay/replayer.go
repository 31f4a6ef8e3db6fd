package replay

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
	"go.uber.org/zap"

	"github.com/park285/comeback-bonus/internal/domain"
)

var ErrMalformedGame = errors.New("malformed game")

// Ply is the board material right after one half-move.
type Ply struct {
	Number   int
	Mover    domain.Side
	SAN      string
	Material Material
}

// Replayer steps through SAN move lists from the standard start position.
// Each Replay call owns its own board.
type Replayer struct {
	logger *zap.Logger
	book   *opening.BookECO
}

func NewReplayer(logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{logger: logger}
}

// Replay applies moves in order and calls fn after every ply. Returning false
// from fn stops the replay without error. A move that cannot be decoded or
// applied fails with ErrMalformedGame.
func (r *Replayer) Replay(moves []string, fn func(Ply) bool) error {
	game := nchess.NewGame()
	notation := nchess.AlgebraicNotation{}
	mover := domain.White

	for i, raw := range moves {
		san := strings.TrimSpace(raw)
		number := i + 1
		if san == "" {
			return fmt.Errorf("%w: empty move at ply %d", ErrMalformedGame, number)
		}
		move, err := notation.Decode(game.Position(), san)
		if err != nil {
			r.logger.Debug("replay decode failed", zap.Int("ply", number), zap.String("san", san), zap.Error(err))
			return fmt.Errorf("%w: decode ply %d %q: %v", ErrMalformedGame, number, san, err)
		}
		if err := game.Move(move, nil); err != nil {
			r.logger.Debug("replay apply failed", zap.Int("ply", number), zap.String("san", san), zap.Error(err))
			return fmt.Errorf("%w: apply ply %d %q: %v", ErrMalformedGame, number, san, err)
		}

		ply := Ply{
			Number:   number,
			Mover:    mover,
			SAN:      san,
			Material: BoardMaterial(game.Position().Board()),
		}
		if fn != nil && !fn(ply) {
			return nil
		}
		mover = mover.Opponent()
	}
	return nil
}

// Trace collects every ply. On a malformed game the plies before the failing
// move are returned with the error.
func (r *Replayer) Trace(moves []string) ([]Ply, error) {
	plies := make([]Ply, 0, len(moves))
	err := r.Replay(moves, func(p Ply) bool {
		plies = append(plies, p)
		return true
	})
	return plies, err
}

// Opening labels the longest ECO line matching the legal prefix of moves.
func (r *Replayer) Opening(moves []string) (string, string) {
	game := nchess.NewGame()
	notation := nchess.AlgebraicNotation{}
	for _, raw := range moves {
		move, err := notation.Decode(game.Position(), strings.TrimSpace(raw))
		if err != nil {
			break
		}
		if err := game.Move(move, nil); err != nil {
			break
		}
	}
	if r.book == nil {
		r.book = opening.NewBookECO()
	}
	if eco := r.book.Find(game.Moves()); eco != nil {
		return eco.Code(), eco.Title()
	}
	return "", ""
}
