package simconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStableAcrossEqualValues(t *testing.T) {
	a := Default()
	b := Default()

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
}

func TestFingerprintChangesWithThreshold(t *testing.T) {
	a := Default()
	b := Default()
	b.ImageImageThreshold = 0.5

	fa, _ := a.Fingerprint()
	fb, _ := b.Fingerprint()

	assert.NotEqual(t, fa, fb)
}

func TestEpsUsesLowestThreshold(t *testing.T) {
	c := Default()
	c.ImageImageThreshold = 0.9
	c.ImageVideoThreshold = 0.7
	c.VideoVideoThreshold = 0.95

	assert.InDelta(t, 0.3, c.Eps(), 1e-9)
}
