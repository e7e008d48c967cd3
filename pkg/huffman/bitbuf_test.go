package huffman

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriterPadsFinalByteWithZeros(t *testing.T) {
	w := &Writer{}
	w.WriteBit(true)
	w.WriteBit(false)
	w.WriteBit(true)
	assert.Equal(t, []byte{0b10100000}, w.Bytes())
}

func TestWriterFullByte(t *testing.T) {
	w := &Writer{}
	bits := []bool{true, false, true, false, true, false, true, true}
	for _, b := range bits {
		w.WriteBit(b)
	}
	assert.Equal(t, []byte{0b10101011}, w.Bytes())
}

func TestReaderRoundTrip(t *testing.T) {
	w := &Writer{}
	bits := []bool{true, true, false, false, true, false, true, true, true, false}
	for _, b := range bits {
		w.WriteBit(b)
	}
	r := NewReader(w.Bytes())
	for _, want := range bits {
		got, ok := r.ReadBit()
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestReaderExhausted(t *testing.T) {
	r := NewReader([]byte{0xFF})
	for i := 0; i < 8; i++ {
		_, ok := r.ReadBit()
		assert.True(t, ok)
	}
	_, ok := r.ReadBit()
	assert.False(t, ok)
}
