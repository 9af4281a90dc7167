// Package dcthash is the optional DCT-perception-hash FrameHasher
// backend, selected via SimilarityConfig.HashAlgorithm == "dct" for
// users who prefer goimagehash's classic pHash over the engine's
// default mean-threshold hash.
package dcthash

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"

	"github.com/mediadedupe/mediadedupe/internal/mediahash"
)

// Hasher wraps goimagehash.PerceptionHash.
type Hasher struct{}

// New builds a dcthash.Hasher.
func New() *Hasher { return &Hasher{} }

// Hash computes a 64-bit DCT perception hash and adapts it into a
// mediahash.BitHash.
func (h *Hasher) Hash(img image.Image) (mediahash.BitHash, error) {
	ih, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return mediahash.BitHash{}, fmt.Errorf("computing dct hash: %w", err)
	}
	bits := make([]bool, 64)
	v := ih.GetHash()
	for i := 0; i < 64; i++ {
		bits[i] = v&(1<<uint(63-i)) != 0
	}
	return mediahash.NewBitHash(bits), nil
}
