package huffman

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedIsSingleton(t *testing.T) {
	a := Shared()
	b := Shared()
	assert.Same(t, a, b)
}

func TestCodebookCoversFullAlphabet(t *testing.T) {
	c := Shared()
	seen := map[string]bool{}
	for s := 0; s < AlphabetSize; s++ {
		code := c.codes[s]
		require.NotEmpty(t, code)
		assert.False(t, seen[code], "duplicate code %q for symbol %d", code, s)
		seen[code] = true
	}
}

func TestEncodeSymbolRejectsOutOfAlphabet(t *testing.T) {
	c := Shared()
	w := &Writer{}
	assert.ErrorIs(t, c.EncodeSymbol(w, -1), ErrSymbolOutOfAlphabet)
	assert.ErrorIs(t, c.EncodeSymbol(w, AlphabetSize), ErrSymbolOutOfAlphabet)
}

func TestRoundTripSingleSymbol(t *testing.T) {
	c := Shared()
	for _, s := range []int{0, 1, 2, 17, 63, 128, 255} {
		w := &Writer{}
		require.NoError(t, c.EncodeSymbol(w, s))
		got, err := c.DecodeStream(NewReader(w.Bytes()), 1)
		require.NoError(t, err)
		assert.Equal(t, []int{s}, got)
	}
}

func TestRoundTripSequence(t *testing.T) {
	c := Shared()
	symbols := []int{0, 0, 1, 0, 2, 5, 0, 1, 254, 255, 0}
	w := &Writer{}
	for _, s := range symbols {
		require.NoError(t, c.EncodeSymbol(w, s))
	}
	got, err := c.DecodeStream(NewReader(w.Bytes()), len(symbols))
	require.NoError(t, err)
	assert.Equal(t, symbols, got)
}

func TestDecodeStreamExhausted(t *testing.T) {
	c := Shared()
	w := &Writer{}
	require.NoError(t, c.EncodeSymbol(w, 0))
	_, err := c.DecodeStream(NewReader(w.Bytes()), 10)
	assert.ErrorIs(t, err, ErrStreamExhausted)
}

func TestLowerRankSymbolsNeverGetMuchLongerCodes(t *testing.T) {
	c := Shared()
	for s := 0; s < AlphabetSize-1; s++ {
		assert.LessOrEqual(t, len(c.codes[s]), len(c.codes[s+1])+4,
			"symbol %d code longer than expected relative to %d", s, s+1)
	}
	assert.LessOrEqual(t, len(c.codes[0]), len(c.codes[255]))
}
