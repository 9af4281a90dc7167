package mediahash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitHashDistanceIdentical(t *testing.T) {
	bits := []bool{true, false, true, true, false, false, true, false}
	a := NewBitHash(bits)
	b := NewBitHash(bits)

	d, err := a.Distance(b)
	require.NoError(t, err)
	assert.Equal(t, 0, d)
}

func TestBitHashDistanceCountsFlippedBits(t *testing.T) {
	a := NewBitHash([]bool{true, true, true, true})
	b := NewBitHash([]bool{true, false, true, false})

	d, err := a.Distance(b)
	require.NoError(t, err)
	assert.Equal(t, 2, d)
}

func TestBitHashDistanceAcrossWordBoundary(t *testing.T) {
	bitsA := make([]bool, 130)
	bitsB := make([]bool, 130)
	bitsB[64] = true
	bitsB[129] = true

	a := NewBitHash(bitsA)
	b := NewBitHash(bitsB)

	d, err := a.Distance(b)
	require.NoError(t, err)
	assert.Equal(t, 2, d)
}

func TestBitHashDistanceMismatchedLength(t *testing.T) {
	a := NewBitHash(make([]bool, 64))
	b := NewBitHash(make([]bool, 128))

	_, err := a.Distance(b)
	require.Error(t, err)
	var mismatch ErrBitLenMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 64, mismatch.A)
	assert.Equal(t, 128, mismatch.B)
}

func TestBitHashNormalizedDistance(t *testing.T) {
	a := NewBitHash([]bool{true, true, true, true})
	b := NewBitHash([]bool{false, false, true, true})

	nd, err := a.NormalizedDistance(b)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, nd, 1e-9)
}

func TestBitHashStringRoundTripsConsistently(t *testing.T) {
	a := NewBitHash([]bool{true, false, true, false, true, false, true, false})
	b := NewBitHash([]bool{true, false, true, false, true, false, true, false})
	assert.Equal(t, a.String(), b.String())
}
