// Package frame provides frame suppliers: DefaultSupplier decodes still
// images with the standard library, and VideoSupplier shells out to
// ffprobe/ffmpeg to extract a sampled frame sequence from a video
// container, since no pack example ships a pure-Go video decoder.
package frame

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mediadedupe/mediadedupe/internal/mediahash"
	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
	"github.com/mediadedupe/mediadedupe/internal/simconfig"
)

// ErrVideoUnsupported is returned when a video file is encountered but no
// video-capable supplier (VideoSupplier) is configured to handle it.
var ErrVideoUnsupported = errors.New("frame: video decoding is not implemented by the default supplier")

// Hasher computes a perceptual hash for a decoded frame. Both
// framehash.Hasher and dcthash.Hasher satisfy this.
type Hasher interface {
	Hash(img image.Image) (mediahash.BitHash, error)
}

// Supplier extracts the frame sequence for a file.
type Supplier interface {
	Frames(ctx context.Context, path string) (mediamodel.MediaInfo, error)
}

// DefaultSupplier decodes still images with the standard library plus
// golang.org/x/image's extra format decoders, and hashes the single
// resulting frame with the configured Hasher. Video containers are
// delegated to Video if set, otherwise rejected with ErrVideoUnsupported.
type DefaultSupplier struct {
	Hasher Hasher
	Video  Supplier
}

// NewDefaultSupplier binds a DefaultSupplier to hasher, with no video
// support.
func NewDefaultSupplier(hasher Hasher) *DefaultSupplier {
	return &DefaultSupplier{Hasher: hasher}
}

// Frames decodes path as a still image, or delegates to Video for
// recognized video extensions.
func (s *DefaultSupplier) Frames(ctx context.Context, path string) (mediamodel.MediaInfo, error) {
	if err := ctx.Err(); err != nil {
		return mediamodel.MediaInfo{}, err
	}
	if isVideoExt(path) {
		if s.Video == nil {
			return mediamodel.MediaInfo{}, fmt.Errorf("%s: %w", path, ErrVideoUnsupported)
		}
		return s.Video.Frames(ctx, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return mediamodel.MediaInfo{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return mediamodel.MediaInfo{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	hash, err := s.Hasher.Hash(img)
	if err != nil {
		return mediamodel.MediaInfo{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	return mediamodel.MediaInfo{
		Frames: []mediamodel.FrameInfo{{Hash: hash, Timestamp: 0}},
	}, nil
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true,
}

func isVideoExt(path string) bool {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return videoExtensions[path[i:]]
		}
	}
	return false
}

// VideoSupplier extracts a video's frame sequence by shelling out to
// ffprobe (for duration) and ffmpeg (for frame grabs), per spec.md
// §4.2's frame-selection policy: sample at targetFps, then add extra
// frames at scene changes whose Hamming distance from the most recently
// kept frame is at least sceneChangeThreshold bits, clamped to
// [minFrames, maxSceneFrames].
type VideoSupplier struct {
	Hasher     Hasher
	Cfg        simconfig.SimilarityConfig
	FFprobe    string
	FFmpeg     string
	TempDir    string
}

// NewVideoSupplier binds a VideoSupplier to hasher and cfg, using the
// ffprobe/ffmpeg binaries found on PATH unless overridden.
func NewVideoSupplier(hasher Hasher, cfg simconfig.SimilarityConfig) *VideoSupplier {
	return &VideoSupplier{Hasher: hasher, Cfg: cfg, FFprobe: "ffprobe", FFmpeg: "ffmpeg"}
}

// Frames probes path for its duration, extracts frames at the
// configured sample times, hashes each with Hasher, and appends any
// scene-change frames whose perceptual hash is at least
// sceneChangeThreshold bits from the most recently kept frame.
func (s *VideoSupplier) Frames(ctx context.Context, path string) (mediamodel.MediaInfo, error) {
	duration, err := s.probeDuration(ctx, path)
	if err != nil {
		return mediamodel.MediaInfo{}, fmt.Errorf("probing %s: %w", path, err)
	}
	if duration <= 0 {
		return mediamodel.MediaInfo{}, fmt.Errorf("probing %s: non-positive duration", path)
	}

	baseTimes, candidateTimes := s.sampleTimes(duration)

	tmpDir, err := os.MkdirTemp(s.TempDir, "mediadedupe-frames-*")
	if err != nil {
		return mediamodel.MediaInfo{}, err
	}
	defer os.RemoveAll(tmpDir)

	grab := func(i int, t float64) (mediahash.BitHash, bool) {
		if ctx.Err() != nil {
			return mediahash.BitHash{}, false
		}
		framePath := filepath.Join(tmpDir, fmt.Sprintf("frame_%d.jpg", i))
		if err := s.extractFrame(ctx, path, t, framePath); err != nil {
			return mediahash.BitHash{}, false
		}
		img, err := decodeFrame(framePath)
		if err != nil {
			return mediahash.BitHash{}, false
		}
		hash, err := s.Hasher.Hash(img)
		if err != nil {
			return mediahash.BitHash{}, false
		}
		return hash, true
	}

	var frames []mediamodel.FrameInfo
	var prevHash mediahash.BitHash
	havePrev := false

	// Base frames at targetFps are always kept.
	for i, t := range baseTimes {
		hash, ok := grab(i, t)
		if !ok {
			continue
		}
		frames = append(frames, mediamodel.FrameInfo{Hash: hash, Timestamp: t})
		prevHash, havePrev = hash, true
	}

	// Candidate midpoint frames are kept only when they mark a scene
	// change relative to the most recently kept frame, per spec.md §4.2.
	for i, t := range candidateTimes {
		if len(frames) >= s.Cfg.MaxSceneFrames {
			break
		}
		hash, ok := grab(len(baseTimes)+i, t)
		if !ok {
			continue
		}
		if havePrev {
			dist, err := prevHash.Distance(hash)
			if err == nil && dist < s.Cfg.SceneChangeThreshold {
				continue
			}
		}
		frames = append(frames, mediamodel.FrameInfo{Hash: hash, Timestamp: t})
		prevHash, havePrev = hash, true
	}

	if len(frames) > s.Cfg.MaxSceneFrames && s.Cfg.MaxSceneFrames > 0 {
		frames = frames[:s.Cfg.MaxSceneFrames]
	}

	sort.Slice(frames, func(i, j int) bool { return frames[i].Timestamp < frames[j].Timestamp })

	return mediamodel.MediaInfo{Duration: duration, Frames: frames}, nil
}

// sampleTimes returns the targetFps base offsets (always kept) and the
// midpoint offsets between consecutive base frames (kept only on a
// detected scene change), with the base count clamped to
// [minFrames, maxSceneFrames].
func (s *VideoSupplier) sampleTimes(duration float64) (base, candidates []float64) {
	fps := s.Cfg.TargetFPS
	if fps <= 0 {
		fps = 1
	}
	count := int(duration * fps)
	if count < s.Cfg.MinFrames {
		count = s.Cfg.MinFrames
	}
	if s.Cfg.MaxSceneFrames > 0 && count > s.Cfg.MaxSceneFrames {
		count = s.Cfg.MaxSceneFrames
	}
	if count < 1 {
		count = 1
	}

	step := duration / float64(count)
	base = make([]float64, count)
	for i := range base {
		base[i] = step*float64(i) + step/2
	}
	for i := 0; i+1 < len(base); i++ {
		candidates = append(candidates, (base[i]+base[i+1])/2)
	}
	return base, candidates
}

func (s *VideoSupplier) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, s.FFprobe,
		"-v", "quiet", "-print_format", "json", "-show_format", path)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration %q: %w", probe.Format.Duration, err)
	}
	return duration, nil
}

func (s *VideoSupplier) extractFrame(ctx context.Context, srcPath string, seconds float64, destPath string) error {
	cmd := exec.CommandContext(ctx, s.FFmpeg,
		"-ss", strconv.FormatFloat(seconds, 'f', 3, 64),
		"-i", srcPath,
		"-vframes", "1",
		"-y", destPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extraction at %.3fs: %w: %s", seconds, err, output)
	}
	return nil
}

func decodeFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
