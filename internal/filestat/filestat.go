// Package filestat implements the default file-stat supplier: basic
// os.Stat facts plus a content hash, sampling head and tail for large
// files the way spec.md's content-hash requirement calls for, adapted
// from the teacher's ComputeFileHash/ComputePartialHash pair which only
// sampled the head.
package filestat

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
)

// SampleThreshold is the file size above which content hashing switches
// from whole-file to head+tail sampling.
const SampleThreshold = 64 * 1024 * 1024 // 64MiB

// SampleSize is how many bytes are read from each end of a large file.
const SampleSize = 1 * 1024 * 1024 // 1MiB

// Supplier computes FileStats for a path.
type Supplier interface {
	Stat(path string) (mediamodel.FileStats, error)
}

// DefaultSupplier implements Supplier with os.Stat plus an MD5 content
// hash.
type DefaultSupplier struct{}

// NewDefaultSupplier builds a DefaultSupplier.
func NewDefaultSupplier() *DefaultSupplier { return &DefaultSupplier{} }

// Stat reads the file's size/mtime and computes its content hash.
func (s *DefaultSupplier) Stat(path string) (mediamodel.FileStats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return mediamodel.FileStats{}, fmt.Errorf("stat %s: %w", path, err)
	}

	hash, err := contentHash(path, info.Size())
	if err != nil {
		return mediamodel.FileStats{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	return mediamodel.FileStats{
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ContentHash: hash,
	}, nil
}

// contentHash returns the whole-file MD5 for files at or below
// SampleThreshold, and an MD5 over (size || head sample || tail sample)
// for larger files, so multi-gigabyte videos don't need a full read to
// be deduplicated.
func contentHash(path string, size int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()

	if size <= SampleThreshold {
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	fmt.Fprintf(h, "%d", size)

	head := make([]byte, SampleSize)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", err
	}
	h.Write(head[:n])

	tailOffset := size - SampleSize
	if tailOffset < 0 {
		tailOffset = 0
	}
	if _, err := f.Seek(tailOffset, io.SeekStart); err != nil {
		return "", err
	}
	tail := make([]byte, SampleSize)
	n, err = io.ReadFull(f, tail)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", err
	}
	h.Write(tail[:n])

	return hex.EncodeToString(h.Sum(nil)), nil
}
