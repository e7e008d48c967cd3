package poscodec

import (
	"strings"
	"testing"

	"github.com/corentings/chess/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, fen string) *chess.Position {
	t.Helper()
	pos := &chess.Position{}
	require.NoError(t, pos.UnmarshalText([]byte(fen)))
	return pos
}

// withoutClocks drops the halfmove clock and fullmove number from a FEN string, since
// Decode does not preserve them.
func withoutClocks(fen string) string {
	return strings.Join(strings.Fields(fen)[:4], " ")
}

func TestRoundTripStartingPosition(t *testing.T) {
	pos := chess.StartingPosition()
	cp := Encode(pos)
	got, err := Decode(cp)
	require.NoError(t, err)
	assert.Equal(t, pos.String(), got.String())
}

func TestRoundTripEnPassant(t *testing.T) {
	pos := mustParse(t, "rnbqkbnr/ppp1ppp1/7p/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3")
	cp := Encode(pos)
	got, err := Decode(cp)
	require.NoError(t, err)
	assert.Equal(t, withoutClocks(pos.String()), withoutClocks(got.String()))
}

func TestRoundTripCastlingRights(t *testing.T) {
	pos := mustParse(t, "r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQkq - 0 1")
	cp := Encode(pos)
	got, err := Decode(cp)
	require.NoError(t, err)
	assert.Equal(t, pos.String(), got.String())
}

func TestRoundTripBlackToMove(t *testing.T) {
	pos := mustParse(t, "r1bqk2r/pp1nbppp/2p1pn2/3p4/2PP4/2N1PN2/PP3PPP/R1BQK2R b KQkq - 0 7")
	cp := Encode(pos)
	got, err := Decode(cp)
	require.NoError(t, err)
	assert.Equal(t, withoutClocks(pos.String()), withoutClocks(got.String()))
}

func TestWireRoundTrip(t *testing.T) {
	pos := chess.StartingPosition()
	cp := Encode(pos)

	data := cp.WriteTo(nil)
	back, err := ReadFrom(data)
	require.NoError(t, err)
	assert.Equal(t, cp, back)
}

func TestReadFromInsufficientDataForBitboard(t *testing.T) {
	_, err := ReadFrom([]byte{1, 2, 3})
	require.Error(t, err)
	assert.Equal(t, "insufficient_data: poscodec: need 8 bytes for occupied mask, got 3", err.Error())
}

func TestReadFromInsufficientDataForPackedState(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 1}
	_, err := ReadFrom(data)
	require.Error(t, err)
}

func TestDecodeInsufficientNibbles(t *testing.T) {
	pos := chess.StartingPosition()
	cp := Encode(pos)
	cp.Packed = cp.Packed[:len(cp.Packed)-1]
	_, err := Decode(cp)
	require.Error(t, err)
}

func TestDecodeRejectsIncompletePosition(t *testing.T) {
	// A single black king with no white king is a validly-encoded nibble sequence but
	// an illegal chess position; the rules engine must reject the reconstructed FEN.
	cp := CompressedPosition{Occupied: 1, Packed: []byte{0x0F}}
	_, err := Decode(cp)
	require.Error(t, err)
}
