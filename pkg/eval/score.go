package eval

import "github.com/corentings/chess/v2"

// Score computes the move ranker's ordering key for m in pos, before m is played. The
// formula packs every component into disjoint bit ranges so the key is a single total
// order with no ties: the low 12 bits already encode the unique (from, to) pair.
//
//	bit 26..   promotion role, 0 if none
//	bit 25     capture flag
//	bit 22..24 defending-pawns factor
//	bit 12..21 512 + PSQT[to] - PSQT[from]
//	bit 6..11  to square
//	bit 0..5   from square
func Score(pos *chess.Position, m *chess.Move) MoveScore {
	us := pos.Turn()
	them := us.Other()

	role := pos.Board().Piece(m.S1()).Type()
	from, to := int(m.S1()), int(m.S2())

	var score int32

	if promo := m.Promo(); promo != chess.NoPieceType {
		score += int32(roleIndex(promo)) << 26
	}

	if m.HasTag(chess.Capture) || m.HasTag(chess.EnPassant) {
		score += 1 << 25
	}

	var defending int32
	if opponentPawnAttacks(pos, them, m.S2()) {
		defending = 5 - int32(roleIndex(role))
	} else {
		defending = 6
	}
	score += defending << 22

	delta := 512 + PieceSquareValue(role, us, to) - PieceSquareValue(role, us, from)
	score += delta << 12

	score += int32(to) << 6
	score += int32(from)

	return MoveScore(score)
}

// opponentPawnAttacks reports whether a them-colored pawn attacks sq.
func opponentPawnAttacks(pos *chess.Position, them chess.Color, sq chess.Square) bool {
	file, rank := int(sq)%8, int(sq)/8

	var attackerRank int
	if them == chess.White {
		attackerRank = rank - 1
	} else {
		attackerRank = rank + 1
	}
	if attackerRank < 0 || attackerRank > 7 {
		return false
	}

	for _, attackerFile := range []int{file - 1, file + 1} {
		if attackerFile < 0 || attackerFile > 7 {
			continue
		}
		candidate := chess.Square(attackerRank*8 + attackerFile)
		p := pos.Board().Piece(candidate)
		if p.Type() == chess.Pawn && p.Color() == them {
			return true
		}
	}
	return false
}
