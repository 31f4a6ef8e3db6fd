package replay

import (
	nchess "github.com/corentings/chess/v2"

	"github.com/park285/comeback-bonus/internal/domain"
)

var (
	initialPieceCounts = map[nchess.PieceType]int{
		nchess.Pawn:   8,
		nchess.Knight: 2,
		nchess.Bishop: 2,
		nchess.Rook:   2,
		nchess.Queen:  1,
	}
	// Tournament valuation. Kings are absent and count 0.
	pieceValues = map[nchess.PieceType]int{
		nchess.Pawn:   1,
		nchess.Knight: 3,
		nchess.Bishop: 3,
		nchess.Rook:   5,
		nchess.Queen:  9,
	}
	materialBase = func() int {
		base := 0
		for pt, count := range initialPieceCounts {
			base += count * pieceValues[pt]
		}
		return base
	}()
)

// Material holds both sides' summed piece values.
type Material struct {
	White int
	Black int
}

func InitialMaterial() Material {
	return Material{White: materialBase, Black: materialBase}
}

func (m Material) Of(side domain.Side) int {
	if side == domain.White {
		return m.White
	}
	return m.Black
}

// Deficit is how far side trails its opponent; negative when ahead.
func (m Material) Deficit(side domain.Side) int {
	return m.Of(side.Opponent()) - m.Of(side)
}

func (m Material) Diff() int {
	return m.White - m.Black
}

// BoardMaterial sums every occupied square from scratch.
func BoardMaterial(board *nchess.Board) Material {
	var score Material
	if board == nil {
		return score
	}
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			piece := board.Piece(nchess.NewSquare(file, rank))
			if piece == nchess.NoPiece {
				continue
			}
			value := pieceValues[piece.Type()]
			if value == 0 {
				continue
			}
			switch piece.Color() {
			case nchess.White:
				score.White += value
			case nchess.Black:
				score.Black += value
			}
		}
	}
	return score
}
