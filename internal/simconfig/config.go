// Package simconfig defines the tunable parameters of the similarity
// engine and a stable fingerprint of that configuration used to
// invalidate the on-disk cache when thresholds change between runs.
package simconfig

import (
	"crypto/md5"
	"encoding/hex"

	"gopkg.in/yaml.v3"
)

// SimilarityConfig carries every threshold and resolution knob the
// similarity kernel, VP-tree and DBSCAN engine consult. Field order is
// significant: it is the canonical order used by Fingerprint, so new
// fields must be appended, never inserted.
type SimilarityConfig struct {
	HashResolution       int     `yaml:"hash_resolution"`
	ImageImageThreshold  float64 `yaml:"image_image_threshold"`
	ImageVideoThreshold  float64 `yaml:"image_video_threshold"`
	VideoVideoThreshold  float64 `yaml:"video_video_threshold"`
	MinPts               int     `yaml:"min_pts"`
	ClusterBatchSize     int     `yaml:"cluster_batch_size"`
	HashAlgorithm        string  `yaml:"hash_algorithm"`

	// StepSize is the increment, in seconds, by which videoSim slides its
	// query window across the longer of two videos (spec.md §3).
	StepSize float64 `yaml:"step_size"`
	// WindowSize bounds how many of the longer video's frames fall
	// within one slide of the query window before they're subsampled
	// down for the DTW comparison (spec.md §3).
	WindowSize int `yaml:"window_size"`
	// SceneChangeThreshold is the minimum Hamming distance, in bits,
	// between consecutive sampled frames for the later one to count as
	// a scene change and be kept as an extra frame (spec.md §4.2).
	SceneChangeThreshold int `yaml:"scene_change_threshold"`
	// TargetFPS is the base video frame-sampling rate (spec.md §4.2).
	TargetFPS float64 `yaml:"target_fps"`
	// MinFrames is the floor on how many frames a video's sequence is
	// sampled down to, regardless of targetFps (spec.md §4.2).
	MinFrames int `yaml:"min_frames"`
	// MaxSceneFrames caps how many frames (base samples plus scene
	// changes) a single video's sequence may carry (spec.md §4.2).
	MaxSceneFrames int `yaml:"max_scene_frames"`
}

// Default returns the configuration shipped as the engine's baseline,
// mirroring the thresholds spec.md §3 documents as typical values.
func Default() SimilarityConfig {
	return SimilarityConfig{
		HashResolution:       64,
		ImageImageThreshold:  0.90,
		ImageVideoThreshold:  0.85,
		VideoVideoThreshold:  0.85,
		MinPts:               2,
		ClusterBatchSize:     2048,
		HashAlgorithm:        "mean-threshold",
		StepSize:             5.0,
		WindowSize:           32,
		SceneChangeThreshold: 12,
		TargetFPS:            0.5,
		MinFrames:            3,
		MaxSceneFrames:       24,
	}
}

// Eps returns the DBSCAN epsilon used for VP-tree candidate retrieval:
// the widest (most permissive) distance implied by the three
// similarity thresholds (DESIGN.md Open Question 2).
func (c SimilarityConfig) Eps() float64 {
	minThreshold := c.ImageImageThreshold
	if c.ImageVideoThreshold < minThreshold {
		minThreshold = c.ImageVideoThreshold
	}
	if c.VideoVideoThreshold < minThreshold {
		minThreshold = c.VideoVideoThreshold
	}
	return 1.0 - minThreshold
}

// Fingerprint returns a stable hash of the configuration's canonical YAML
// encoding. Two configs that marshal identically (same values) always
// fingerprint identically, regardless of the Go representation's memory
// layout, because yaml.v3 serializes struct fields in declaration order.
func (c SimilarityConfig) Fingerprint() (string, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:]), nil
}
