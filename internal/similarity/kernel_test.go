package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediadedupe/mediadedupe/internal/mediahash"
	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
	"github.com/mediadedupe/mediadedupe/internal/simconfig"
)

func bits(n int, set ...int) mediahash.BitHash {
	b := make([]bool, n)
	for _, i := range set {
		b[i] = true
	}
	return mediahash.NewBitHash(b)
}

func imageFile(hash mediahash.BitHash) mediamodel.FileInfo {
	return mediamodel.FileInfo{
		Media: mediamodel.MediaInfo{Frames: []mediamodel.FrameInfo{{Hash: hash}}},
	}
}

func videoFile(hashes ...mediahash.BitHash) mediamodel.FileInfo {
	frames := make([]mediamodel.FrameInfo, len(hashes))
	for i, h := range hashes {
		frames[i] = mediamodel.FrameInfo{Hash: h, Timestamp: float64(i)}
	}
	return mediamodel.FileInfo{Media: mediamodel.MediaInfo{Duration: float64(len(hashes)), Frames: frames}}
}

func TestImageImageIdenticalHashesAreFullySimilar(t *testing.T) {
	k := New(simconfig.Default(), nil)
	h := bits(64, 1, 5, 9)
	sim, err := k.Similarity(imageFile(h), imageFile(h))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestImageImageFullyDifferentHashesAreZero(t *testing.T) {
	k := New(simconfig.Default(), nil)
	a := bits(8, 0, 1, 2, 3, 4, 5, 6, 7)
	b := bits(8)
	sim, err := k.Similarity(imageFile(a), imageFile(b))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)
}

func TestImageVideoPicksBestFrame(t *testing.T) {
	k := New(simconfig.Default(), nil)
	target := bits(8, 0, 1)
	far := bits(8, 0, 1, 2, 3, 4, 5, 6, 7)
	video := videoFile(far, target)
	sim, err := k.Similarity(imageFile(target), video)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestVideoVideoIdenticalSequencesAreFullySimilar(t *testing.T) {
	k := New(simconfig.Default(), nil)
	seq := []mediahash.BitHash{bits(8, 0), bits(8, 1), bits(8, 2)}
	a := videoFile(seq...)
	b := videoFile(seq...)
	sim, err := k.Similarity(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestVideoVideoToleratesFrameOffsetViaWarping(t *testing.T) {
	k := New(simconfig.Default(), nil)
	seq := []mediahash.BitHash{bits(8, 0), bits(8, 1), bits(8, 2), bits(8, 3)}
	shifted := []mediahash.BitHash{bits(8, 0), bits(8, 0), bits(8, 1), bits(8, 2), bits(8, 3)}
	sim, err := k.Similarity(videoFile(seq...), videoFile(shifted...))
	require.NoError(t, err)
	assert.Greater(t, sim, 0.8)
}

func videoFileAt(timestamps []float64, duration float64, hashes ...mediahash.BitHash) mediamodel.FileInfo {
	frames := make([]mediamodel.FrameInfo, len(hashes))
	for i, h := range hashes {
		frames[i] = mediamodel.FrameInfo{Hash: h, Timestamp: timestamps[i]}
	}
	return mediamodel.FileInfo{Media: mediamodel.MediaInfo{Duration: duration, Frames: frames}}
}

// TestVideoVideoMatchesClipExtractedFromMiddle mirrors spec.md's S5: a
// short clip cut from the middle of a longer video must still match,
// because videoSim slides a window across the longer sequence instead
// of forcing both sequences' endpoints to align.
func TestVideoVideoMatchesClipExtractedFromMiddle(t *testing.T) {
	cfg := simconfig.Default()
	cfg.StepSize = 1
	cfg.VideoVideoThreshold = 0.8
	k := New(cfg, nil)

	longHashes := make([]mediahash.BitHash, 30)
	longTimes := make([]float64, 30)
	for i := range longHashes {
		longHashes[i] = bits(8, i%8)
		longTimes[i] = float64(i)
	}
	long := videoFileAt(longTimes, 30, longHashes...)

	clipHashes := longHashes[10:20]
	clipTimes := make([]float64, 10)
	for i := range clipTimes {
		clipTimes[i] = float64(i)
	}
	clip := videoFileAt(clipTimes, 10, clipHashes...)

	sim, err := k.Similarity(long, clip)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sim, 0.8)
}

func TestSimilarityErrorsOnBitLenMismatch(t *testing.T) {
	k := New(simconfig.Default(), nil)
	a := imageFile(bits(8))
	b := imageFile(bits(16))
	_, err := k.Similarity(a, b)
	require.Error(t, err)
}

func TestEmptyFramesYieldZeroSimilarity(t *testing.T) {
	k := New(simconfig.Default(), nil)
	empty := mediamodel.FileInfo{}
	sim, err := k.Similarity(empty, imageFile(bits(8)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
}

func TestThresholdSelectsByMediaKindPair(t *testing.T) {
	cfg := simconfig.Default()
	cfg.ImageImageThreshold = 0.9
	cfg.ImageVideoThreshold = 0.8
	cfg.VideoVideoThreshold = 0.7
	k := New(cfg, nil)

	assert.InDelta(t, 0.9, k.Threshold(false, false), 1e-9)
	assert.InDelta(t, 0.8, k.Threshold(false, true), 1e-9)
	assert.InDelta(t, 0.8, k.Threshold(true, false), 1e-9)
	assert.InDelta(t, 0.7, k.Threshold(true, true), 1e-9)
}
