package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediadedupe/mediadedupe/internal/cache"
	"github.com/mediadedupe/mediadedupe/internal/cachekv"
	"github.com/mediadedupe/mediadedupe/internal/filestat"
	"github.com/mediadedupe/mediadedupe/internal/mediahash"
	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
	"github.com/mediadedupe/mediadedupe/internal/metaread"
	"github.com/mediadedupe/mediadedupe/internal/selector"
	"github.com/mediadedupe/mediadedupe/internal/similarity"
	"github.com/mediadedupe/mediadedupe/internal/simconfig"
)

type memStore struct{ data map[string][]byte }

func (s *memStore) Get(key []byte) ([]byte, error) { return s.data[string(key)], nil }
func (s *memStore) Put(key, value []byte) error {
	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}
func (s *memStore) Delete(key []byte) error { delete(s.data, string(key)); return nil }
func (s *memStore) ForEach(fn func(key, value []byte) error) error {
	for k, v := range s.data {
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

type memDriver struct{ stores map[string]*memStore }

func newMemDriver() *memDriver { return &memDriver{stores: make(map[string]*memStore)} }
func (d *memDriver) Store(name string) (cachekv.Store, error) {
	if s, ok := d.stores[name]; ok {
		return s, nil
	}
	s := &memStore{data: make(map[string][]byte)}
	d.stores[name] = s
	return s, nil
}
func (d *memDriver) Close() error { return nil }

// fakeFrames assigns a fixed hash per path so test fixtures don't need
// real image files on disk.
type fakeFrames struct{ hashes map[string]mediahash.BitHash }

func (f *fakeFrames) Frames(ctx context.Context, path string) (mediamodel.MediaInfo, error) {
	return mediamodel.MediaInfo{Frames: []mediamodel.FrameInfo{{Hash: f.hashes[path]}}}, nil
}

type fakeMeta struct{}

func (fakeMeta) Read(path string) (mediamodel.FileMetadata, error) {
	return mediamodel.FileMetadata{}, nil
}

func bitsAt(n int, set ...int) mediahash.BitHash {
	b := make([]bool, n)
	for _, i := range set {
		b[i] = true
	}
	return mediahash.NewBitHash(b)
}

func TestPipelineRunClustersNearDuplicateFiles(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.jpg")
	pathB := filepath.Join(dir, "b.jpg")
	pathC := filepath.Join(dir, "c.jpg")
	require.NoError(t, os.WriteFile(pathA, []byte("image-a"), 0644))
	require.NoError(t, os.WriteFile(pathB, []byte("image-b"), 0644))
	require.NoError(t, os.WriteFile(pathC, []byte("image-c"), 0644))

	cfg := simconfig.Default()
	cfg.ImageImageThreshold = 0.9
	cfg.MinPts = 2

	driver := newMemDriver()
	fingerprint, err := cfg.Fingerprint()
	require.NoError(t, err)
	cacheLayer, err := cache.New(driver, fingerprint, 100, nil)
	require.NoError(t, err)

	frames := &fakeFrames{hashes: map[string]mediahash.BitHash{
		pathA: bitsAt(16, 0, 1),
		pathB: bitsAt(16, 0, 1),
		pathC: bitsAt(16, 2, 3, 4, 5, 6, 7, 8, 9),
	}}

	kernel := similarity.New(cfg, nil)
	sel := selector.New(kernel, cfg, 2)

	pl := New(cfg, 2, cacheLayer, frames, fakeMeta{}, filestat.NewDefaultSupplier(), sel, nil)

	result, files, err := pl.Run(context.Background(), []string{pathA, pathB, pathC})
	require.NoError(t, err)
	assert.Len(t, files, 3)

	require.Len(t, result.Clusters, 1)
	assert.Len(t, result.Clusters[0], 2)
	assert.Contains(t, result.Noise, pathC)
}
