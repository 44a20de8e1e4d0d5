package ba

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromUint64RoundTrip(t *testing.T) {
	a := FromUint64(0b10110, 8)
	assert.Equal(t, uint8(0), a.Bit(0))
	assert.Equal(t, uint8(1), a.Bit(1))
	assert.Equal(t, uint8(1), a.Bit(2))
	assert.Equal(t, uint8(0), a.Bit(3))
	assert.Equal(t, uint8(1), a.Bit(4))
	assert.EqualValues(t, 0b10110, a.Uint64())
}

func TestFromUint64MasksExcessBits(t *testing.T) {
	a := FromUint64(0xFF, 3)
	assert.EqualValues(t, 0b111, a.Uint64())
}

func TestSetBit(t *testing.T) {
	a := New(8)
	a.SetBit(3, 1)
	assert.EqualValues(t, 1, a.Bit(3))
	a.SetBit(3, 0)
	assert.EqualValues(t, 0, a.Bit(3))
}

func TestXor(t *testing.T) {
	a := FromUint64(0b1100, 4)
	b := FromUint64(0b1010, 4)
	got := a.Xor(b)
	assert.EqualValues(t, 0b0110, got.Uint64())
}

func TestXorWidthMismatchPanics(t *testing.T) {
	a := FromUint64(1, 4)
	b := FromUint64(1, 8)
	assert.Panics(t, func() { a.Xor(b) })
}

func TestEqual(t *testing.T) {
	a := FromUint64(42, 20)
	b := FromUint64(42, 20)
	c := FromUint64(43, 20)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestSlice(t *testing.T) {
	a := FromUint64(0b11010110, 8)
	s := a.Slice(2, 6)
	assert.Equal(t, 4, s.Bits())
	assert.EqualValues(t, 0b0101, s.Uint64())
}

func TestMarshalUnmarshalBinaryRoundTrip(t *testing.T) {
	a, err := Random(rand.Reader, MatchKeyBits)
	require.NoError(t, err)

	enc, err := a.MarshalBinary()
	require.NoError(t, err)

	b := New(MatchKeyBits)
	require.NoError(t, b.UnmarshalBinary(enc))
	assert.True(t, a.Equal(b))
}

func TestUnmarshalBinaryWrongLength(t *testing.T) {
	a := New(MatchKeyBits)
	err := a.UnmarshalBinary([]byte{1, 2})
	assert.Error(t, err)
}

func TestRandomProducesDistinctArrays(t *testing.T) {
	a, err := Random(rand.Reader, 64)
	require.NoError(t, err)
	b, err := Random(rand.Reader, 64)
	require.NoError(t, err)
	ea, _ := a.MarshalBinary()
	eb, _ := b.MarshalBinary()
	assert.False(t, bytes.Equal(ea, eb))
}
