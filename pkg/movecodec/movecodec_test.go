package movecodec

import (
	"testing"

	"github.com/corentings/chess/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripShortGame(t *testing.T) {
	sans := []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6"}
	start := chess.StartingPosition()

	data, err := Encode(start, sans)
	require.NoError(t, err)

	got, err := Decode(start, data, len(sans))
	require.NoError(t, err)
	assert.Equal(t, sans, got)
}

func TestRoundTripWithCheckAndMate(t *testing.T) {
	// Fool's mate.
	sans := []string{"f3", "e5", "g4", "Qh4#"}
	start := chess.StartingPosition()

	data, err := Encode(start, sans)
	require.NoError(t, err)

	got, err := Decode(start, data, len(sans))
	require.NoError(t, err)
	assert.Equal(t, sans, got)
}

func TestEncodeRejectsUnparseableSAN(t *testing.T) {
	start := chess.StartingPosition()
	_, err := Encode(start, []string{"Z9"})
	require.Error(t, err)
}

func TestEncodeRejectsIllegalMove(t *testing.T) {
	start := chess.StartingPosition()
	_, err := Encode(start, []string{"e5"})
	require.Error(t, err)
}

func TestDecodeRejectsTruncatedStream(t *testing.T) {
	start := chess.StartingPosition()
	data, err := Encode(start, []string{"e4"})
	require.NoError(t, err)

	_, err = Decode(start, data, 5)
	require.Error(t, err)
}
