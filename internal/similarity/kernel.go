// Package similarity implements the similarity kernel that scores how
// alike two media files are: plain Hamming comparison for image-image
// pairs, best-frame matching for image-video pairs, and dynamic time
// warping over frame-hash distances for video-video pairs.
package similarity

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
	"github.com/mediadedupe/mediadedupe/internal/simconfig"
)

// Kernel compares two FileInfos and returns a similarity score in
// [0, 1], along with the threshold that should gate "are these a
// duplicate" for the pair's media-type combination.
type Kernel struct {
	cfg    simconfig.SimilarityConfig
	logger *logrus.Logger
}

// New builds a Kernel bound to cfg.
func New(cfg simconfig.SimilarityConfig, logger *logrus.Logger) *Kernel {
	if logger == nil {
		logger = logrus.New()
	}
	return &Kernel{cfg: cfg, logger: logger}
}

// Threshold returns the configured duplicate threshold for a pair of the
// given media kinds (per spec.md's three-way adaptive threshold).
func (k *Kernel) Threshold(aIsVideo, bIsVideo bool) float64 {
	switch {
	case !aIsVideo && !bIsVideo:
		return k.cfg.ImageImageThreshold
	case aIsVideo != bIsVideo:
		return k.cfg.ImageVideoThreshold
	default:
		return k.cfg.VideoVideoThreshold
	}
}

// Similarity scores a and b in [0, 1]. It dispatches on whether either
// side carries more than one frame (spec.md §4.3).
func (k *Kernel) Similarity(a, b mediamodel.FileInfo) (float64, error) {
	aVideo, bVideo := a.Media.IsVideo(), b.Media.IsVideo()

	switch {
	case len(a.Media.Frames) == 0 || len(b.Media.Frames) == 0:
		return 0.0, nil
	case !aVideo && !bVideo:
		return k.imageImage(a.Media.Frames[0], b.Media.Frames[0])
	case aVideo != bVideo:
		image, video := a, b
		if aVideo {
			image, video = b, a
		}
		return k.imageVideo(image.Media.Frames[0], video.Media.Frames)
	default:
		return k.videoVideo(a.Media, b.Media)
	}
}

func (k *Kernel) imageImage(a, b mediamodel.FrameInfo) (float64, error) {
	nd, err := a.Hash.NormalizedDistance(b.Hash)
	if err != nil {
		return 0, err
	}
	return clamp01(1.0 - nd), nil
}

// imageVideo returns the best match between a still image and any single
// frame of a video, since the image could correspond to any moment.
func (k *Kernel) imageVideo(image mediamodel.FrameInfo, frames []mediamodel.FrameInfo) (float64, error) {
	best := 0.0
	for _, f := range frames {
		nd, err := image.Hash.NormalizedDistance(f.Hash)
		if err != nil {
			return 0, err
		}
		if sim := clamp01(1.0 - nd); sim > best {
			best = sim
		}
	}
	return best, nil
}

// videoVideo compares two videos by sliding the shorter one's duration
// as a query window across the longer one's frames in stepSize
// increments, scoring each offset by DTW sequence similarity against
// the shorter video's full frame list, and keeping the best offset
// (spec.md §4.3's videoSim). This lets a short clip cut from the
// middle of a longer video still match, instead of forcing both
// sequences' endpoints to align.
func (k *Kernel) videoVideo(a, b mediamodel.MediaInfo) (float64, error) {
	shorter, longer := a, b
	if b.Duration < a.Duration {
		shorter, longer = b, a
	}
	windowLen := shorter.Duration

	step := k.cfg.StepSize
	if step <= 0 {
		step = 1
	}
	threshold := k.cfg.VideoVideoThreshold

	best := 0.0
	for start := 0.0; start <= longer.Duration-windowLen+1e-9; start += step {
		window := subsample(framesInRange(longer.Frames, start, start+windowLen), k.cfg.WindowSize)
		sim, err := dtwSimilarity(window, shorter.Frames)
		if err != nil {
			return 0, err
		}
		if sim > best {
			best = sim
		}
		if best >= threshold {
			break
		}
	}
	return clamp01(best), nil
}

// framesInRange returns the frames whose timestamp lies in [start, end].
func framesInRange(frames []mediamodel.FrameInfo, start, end float64) []mediamodel.FrameInfo {
	var out []mediamodel.FrameInfo
	for _, f := range frames {
		if f.Timestamp >= start && f.Timestamp <= end {
			out = append(out, f)
		}
	}
	return out
}

// subsample uniformly thins frames down to at most windowSize entries
// so DTW over one slide of a long video stays cheap (spec.md §3's
// windowSize knob).
func subsample(frames []mediamodel.FrameInfo, windowSize int) []mediamodel.FrameInfo {
	if windowSize <= 0 || len(frames) <= windowSize {
		return frames
	}
	out := make([]mediamodel.FrameInfo, windowSize)
	stride := float64(len(frames)) / float64(windowSize)
	for i := range out {
		out[i] = frames[int(float64(i)*stride)]
	}
	return out
}

// dtwSimilarity implements spec.md §4.3's DTW sequence similarity
// literally: a single rolling cost row of length n+1, with a scalar
// "prev" carrying the diagonal predecessor as the row is overwritten
// left to right.
func dtwSimilarity(s1, s2 []mediamodel.FrameInfo) (float64, error) {
	m, n := len(s1), len(s2)
	if m == 0 || n == 0 {
		return 0, nil
	}

	const inf = math.MaxFloat64 / 2
	row := make([]float64, n+1)
	for j := 1; j <= n; j++ {
		row[j] = inf
	}
	row[0] = 0

	for i := 1; i <= m; i++ {
		prev := row[0]
		row[0] = inf
		for j := 1; j <= n; j++ {
			nd, err := s1[i-1].Hash.NormalizedDistance(s2[j-1].Hash)
			if err != nil {
				return 0, err
			}
			cost := clamp01(nd)
			saved := row[j]
			best := prev
			if row[j] < best {
				best = row[j]
			}
			if row[j-1] < best {
				best = row[j-1]
			}
			row[j] = cost + best
			prev = saved
		}
	}

	maxLen := m
	if n > maxLen {
		maxLen = n
	}
	return clamp01(1.0 - row[n]/float64(maxLen)), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

