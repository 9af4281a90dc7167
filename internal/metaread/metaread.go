// Package metaread implements the default metadata supplier: EXIF
// extraction via rwcarlsen/goexif, adapted from the teacher's
// internal/metadata package.
package metaread

import (
	"os"

	"github.com/rwcarlsen/goexif/exif"
	_ "github.com/rwcarlsen/goexif/mknote"

	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
)

// Supplier extracts embedded metadata for a file.
type Supplier interface {
	Read(path string) (mediamodel.FileMetadata, error)
}

// DefaultSupplier reads EXIF tags when present; files without EXIF data
// (or non-image files) yield a zero-value FileMetadata, not an error.
type DefaultSupplier struct{}

// NewDefaultSupplier builds a DefaultSupplier.
func NewDefaultSupplier() *DefaultSupplier { return &DefaultSupplier{} }

// Read extracts whatever EXIF fields are present at path.
func (s *DefaultSupplier) Read(path string) (mediamodel.FileMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return mediamodel.FileMetadata{}, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// Not every file carries EXIF data; that's not an error for a
		// media file that simply lacks it (e.g. a screenshot).
		return mediamodel.FileMetadata{}, nil
	}

	var meta mediamodel.FileMetadata

	if t, err := x.DateTime(); err == nil {
		meta.ImageDate = &t
	}
	if lat, lon, err := x.LatLong(); err == nil {
		meta.GPSLat = &lat
		meta.GPSLon = &lon
	}
	if model, err := x.Get(exif.Model); err == nil {
		if s, err := model.StringVal(); err == nil {
			meta.CameraModel = &s
		}
	}
	if w, err := x.Get(exif.PixelXDimension); err == nil {
		if v, err := w.Int(0); err == nil {
			meta.Width = &v
		}
	}
	if h, err := x.Get(exif.PixelYDimension); err == nil {
		if v, err := h.Int(0); err == nil {
			meta.Height = &v
		}
	}

	return meta, nil
}
