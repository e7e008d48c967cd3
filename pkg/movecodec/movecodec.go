// Package movecodec implements the move-sequence codec: turning a list of SAN moves
// into a Huffman-coded stream of move ranks, and back, replaying the game against the
// chess rules engine at every step so the codeword stream and the position stream never
// drift apart.
package movecodec

import (
	"github.com/corentings/chess/v2"

	"github.com/chesscompress/pgnvault/pkg/huffman"
	"github.com/chesscompress/pgnvault/pkg/ingesterr"
	"github.com/chesscompress/pgnvault/pkg/ranker"
)

// Encode compresses a list of SAN moves played from start, returning the Huffman-coded
// bit stream. The number of plies is not stored in the stream; callers must record
// len(sans) alongside it to be able to decode.
func Encode(start *chess.Position, sans []string) ([]byte, error) {
	w := &huffman.Writer{}
	book := huffman.Shared()

	pos := start
	notation := chess.AlgebraicNotation{}

	for i, san := range sans {
		m, err := notation.Decode(pos, san)
		if err != nil {
			return nil, ingesterr.Newf(ingesterr.UnparseableSan,
				"movecodec: ply %d: %v", i+1, err)
		}

		order := ranker.Order(pos)
		rank, ok := ranker.Rank(order, *m)
		if !ok {
			return nil, ingesterr.Newf(ingesterr.IllegalMove,
				"movecodec: ply %d: move %s not found among legal moves", i+1, san)
		}

		if err := book.EncodeSymbol(w, rank); err != nil {
			return nil, ingesterr.New(ingesterr.InvalidMoveIndex, err)
		}

		next := pos.Update(m)
		if next == nil {
			return nil, ingesterr.Newf(ingesterr.PlayFailure,
				"movecodec: ply %d: engine rejected move %s", i+1, san)
		}
		pos = next
	}

	return w.Bytes(), nil
}

// Decode reconstructs the SAN move list of length n encoded by Encode, starting from
// the same initial position.
func Decode(start *chess.Position, data []byte, n int) ([]string, error) {
	book := huffman.Shared()
	r := huffman.NewReader(data)

	pos := start
	notation := chess.AlgebraicNotation{}
	sans := make([]string, 0, n)

	for i := 0; i < n; i++ {
		order := ranker.Order(pos)

		ranks, err := book.DecodeStream(r, 1)
		if err != nil {
			return nil, ingesterr.Newf(ingesterr.InvalidMoveIndex,
				"movecodec: ply %d: %v", i+1, err)
		}
		rank := ranks[0]

		m, ok := ranker.At(order, rank)
		if !ok {
			return nil, ingesterr.Newf(ingesterr.InvalidMoveIndex,
				"movecodec: ply %d: rank %d out of range (%d legal moves)", i+1, rank, len(order))
		}

		san := notation.Encode(pos, &m)

		next := pos.Update(&m)
		if next == nil {
			return nil, ingesterr.Newf(ingesterr.PlayFailure,
				"movecodec: ply %d: engine rejected decoded move", i+1)
		}

		sans = append(sans, san)
		pos = next
	}

	return sans, nil
}
