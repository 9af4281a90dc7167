// Package mediamodel holds the data structures shared across the
// dedup pipeline: a file's computed stats, its extracted metadata and
// its perceptual fingerprint.
package mediamodel

import (
	"time"

	"github.com/mediadedupe/mediadedupe/internal/mediahash"
)

// FrameInfo is a single sampled frame of an image or video, carrying the
// perceptual hash computed over it and, for video, the timestamp (in
// seconds) at which it was sampled.
type FrameInfo struct {
	Hash      mediahash.BitHash
	Timestamp float64
}

// MediaInfo describes the frame sequence extracted from a file. For a
// still image, Frames holds exactly one FrameInfo and Duration is zero.
type MediaInfo struct {
	Duration float64
	Frames   []FrameInfo
}

// IsVideo reports whether this MediaInfo represents a file with more
// than one sampled frame.
func (m MediaInfo) IsVideo() bool { return len(m.Frames) > 1 }

// FileStats are cheap, non-perceptual file facts used for exact-duplicate
// shortcuts and cache-key derivation.
type FileStats struct {
	Size        int64
	ModTime     time.Time
	ChangeTime  time.Time
	ContentHash string
}

// FileMetadata is the subset of embedded metadata the selector's scoring
// formula and the transfer stage's path template consume.
type FileMetadata struct {
	ImageDate   *time.Time
	GPSLat      *float64
	GPSLon      *float64
	CameraModel *string
	Width       *int
	Height      *int
}

// FileInfo is the fully resolved unit the similarity kernel, VP-tree and
// DBSCAN engine all operate on.
type FileInfo struct {
	Path     string
	Stats    FileStats
	Metadata FileMetadata
	Media    MediaInfo
}

// HasDimensions reports whether width and height were both resolved.
func (f FileInfo) HasDimensions() bool {
	return f.Metadata.Width != nil && f.Metadata.Height != nil
}

// Resolution returns width*height, or 0 if unknown.
func (f FileInfo) Resolution() int64 {
	if !f.HasDimensions() {
		return 0
	}
	return int64(*f.Metadata.Width) * int64(*f.Metadata.Height)
}
