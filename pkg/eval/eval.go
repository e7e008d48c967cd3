// Package eval contains static position and move evaluation logic used to
// order moves deterministically for the move ranker.
package eval

import (
	"github.com/corentings/chess/v2"
)

// MoveScore is a packed, signed ordering key for a single move. Unlike board.Score in
// a search evaluator, it is not a measure of position strength: it exists purely so that
// two independent passes over the same legal-move set (encoder and decoder) agree on the
// exact same total order, byte for byte.
type MoveScore int32

// roleIndex maps a piece type to the compact 0..5 index used throughout the scoring
// formula and the PSQT table, independent of the chess package's own iota values.
func roleIndex(pt chess.PieceType) int {
	switch pt {
	case chess.Pawn:
		return 0
	case chess.Knight:
		return 1
	case chess.Bishop:
		return 2
	case chess.Rook:
		return 3
	case chess.Queen:
		return 4
	case chess.King:
		return 5
	default:
		return 0
	}
}

// PSQT is a static piece-square table, indexed [roleIndex][square-from-white's-perspective].
// It is a tuning input, not a contract: only its determinism matters, since both the
// encoder and decoder must compute the identical move rank. Values are in centipawns.
var PSQT = [6][64]int32{
	pawnPSQT,
	knightPSQT,
	bishopPSQT,
	rookPSQT,
	queenPSQT,
	kingPSQT,
}

// mirror returns the square index mirrored vertically (a1<->a8, etc), used so that a
// single PSQT table can serve both colors: black's perspective is white's, upside down.
func mirror(sq int) int {
	return sq ^ 56
}

// PieceSquareValue returns the PSQT value of a piece of the given role and color sitting
// on sq, a 0..63 index ordered a1=0 .. h8=63 (rank*8+file).
func PieceSquareValue(role chess.PieceType, color chess.Color, sq int) int32 {
	idx := sq
	if color == chess.Black {
		idx = mirror(sq)
	}
	return PSQT[roleIndex(role)][idx]
}

var (
	pawnPSQT = [64]int32{
		0, 0, 0, 0, 0, 0, 0, 0,
		5, 10, 10, -20, -20, 10, 10, 5,
		5, -5, -10, 0, 0, -10, -5, 5,
		0, 0, 0, 20, 20, 0, 0, 0,
		5, 5, 10, 25, 25, 10, 5, 5,
		10, 10, 20, 30, 30, 20, 10, 10,
		50, 50, 50, 50, 50, 50, 50, 50,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	knightPSQT = [64]int32{
		-50, -40, -30, -30, -30, -30, -40, -50,
		-40, -20, 0, 5, 5, 0, -20, -40,
		-30, 5, 10, 15, 15, 10, 5, -30,
		-30, 0, 15, 20, 20, 15, 0, -30,
		-30, 5, 15, 20, 20, 15, 5, -30,
		-30, 0, 10, 15, 15, 10, 0, -30,
		-40, -20, 0, 0, 0, 0, -20, -40,
		-50, -40, -30, -30, -30, -30, -40, -50,
	}
	bishopPSQT = [64]int32{
		-20, -10, -10, -10, -10, -10, -10, -20,
		-10, 5, 0, 0, 0, 0, 5, -10,
		-10, 10, 10, 10, 10, 10, 10, -10,
		-10, 0, 10, 10, 10, 10, 0, -10,
		-10, 5, 5, 10, 10, 5, 5, -10,
		-10, 0, 5, 10, 10, 5, 0, -10,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-20, -10, -10, -10, -10, -10, -10, -20,
	}
	rookPSQT = [64]int32{
		0, 0, 0, 5, 5, 0, 0, 0,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		5, 10, 10, 10, 10, 10, 10, 5,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	queenPSQT = [64]int32{
		-20, -10, -10, -5, -5, -10, -10, -20,
		-10, 0, 5, 0, 0, 0, 0, -10,
		-10, 5, 5, 5, 5, 5, 0, -10,
		0, 0, 5, 5, 5, 5, 0, -5,
		-5, 0, 5, 5, 5, 5, 0, -5,
		-10, 0, 5, 5, 5, 5, 0, -10,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-20, -10, -10, -5, -5, -10, -10, -20,
	}
	kingPSQT = [64]int32{
		20, 30, 10, 0, 0, 10, 30, 20,
		20, 20, 0, 0, 0, 0, 20, 20,
		-10, -20, -20, -20, -20, -20, -20, -10,
		-20, -30, -30, -40, -40, -30, -30, -20,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
	}
)
