// Package ranker produces the deterministic ordering of legal moves at a position that
// both the move-sequence encoder and decoder must agree on byte for byte. It plays the
// same role move list ordering does in a search engine's move list, but here the contract
// is the total order itself, not which move a human would pick first.
package ranker

import (
	"sort"

	"github.com/corentings/chess/v2"

	"github.com/chesscompress/pgnvault/pkg/eval"
)

// Entry is a legal move together with its ordering key.
type Entry struct {
	Move  chess.Move
	Score eval.MoveScore
}

// Order returns the legal moves of pos sorted by descending score. Ties are impossible
// by construction: the low 12 bits of the score already encode the unique (from, to) pair.
func Order(pos *chess.Position) []Entry {
	moves := pos.ValidMoves()

	entries := make([]Entry, len(moves))
	for i := range moves {
		m := moves[i]
		entries[i] = Entry{Move: m, Score: eval.Score(pos, &m)}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	return entries
}

// Rank returns the zero-based index of m within order, and false if m is not present.
func Rank(order []Entry, m chess.Move) (int, bool) {
	for i, e := range order {
		if sameMove(e.Move, m) {
			return i, true
		}
	}
	return 0, false
}

// At returns the move at the given rank, and false if rank is out of range.
func At(order []Entry, rank int) (chess.Move, bool) {
	if rank < 0 || rank >= len(order) {
		return chess.Move{}, false
	}
	return order[rank].Move, true
}

func sameMove(a, b chess.Move) bool {
	return a.S1() == b.S1() && a.S2() == b.S2() && a.Promo() == b.Promo()
}
