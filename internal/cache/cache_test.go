package cache

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediadedupe/mediadedupe/internal/cachekv"
	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
)

type memStore struct {
	data map[string][]byte
}

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

type memDriver struct {
	stores map[string]*memStore
}

func newMemDriver() *memDriver {
	return &memDriver{stores: make(map[string]*memStore)}
}

func (d *memDriver) Store(name string) (cachekv.Store, error) {
	if s, ok := d.stores[name]; ok {
		return s, nil
	}
	s := &memStore{data: make(map[string][]byte)}
	d.stores[name] = s
	return s, nil
}

func (d *memDriver) Close() error { return nil }

func TestResolveComputesOnceAndCaches(t *testing.T) {
	driver := newMemDriver()
	layer, err := New(driver, "fp1", 10, nil)
	require.NoError(t, err)

	var calls int64
	compute := func() (mediamodel.FileInfo, error) {
		atomic.AddInt64(&calls, 1)
		return mediamodel.FileInfo{Path: "a.jpg"}, nil
	}

	fi1, err := layer.Resolve("hash-a", compute)
	require.NoError(t, err)
	fi2, err := layer.Resolve("hash-a", compute)
	require.NoError(t, err)

	assert.Equal(t, "a.jpg", fi1.Path)
	assert.Equal(t, "a.jpg", fi2.Path)
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls))
}

func TestResolvePersistsAcrossLayerInstances(t *testing.T) {
	driver := newMemDriver()
	layer1, err := New(driver, "fp1", 10, nil)
	require.NoError(t, err)

	_, err = layer1.Resolve("hash-b", func() (mediamodel.FileInfo, error) {
		return mediamodel.FileInfo{Path: "b.jpg"}, nil
	})
	require.NoError(t, err)

	layer2, err := New(driver, "fp1", 10, nil)
	require.NoError(t, err)

	called := false
	fi, err := layer2.Resolve("hash-b", func() (mediamodel.FileInfo, error) {
		called = true
		return mediamodel.FileInfo{Path: "wrong"}, nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "b.jpg", fi.Path)
}

func TestResolveInvalidatesOnFingerprintChange(t *testing.T) {
	driver := newMemDriver()
	layer1, err := New(driver, "fp1", 10, nil)
	require.NoError(t, err)
	_, err = layer1.Resolve("hash-c", func() (mediamodel.FileInfo, error) {
		return mediamodel.FileInfo{Path: "c.jpg"}, nil
	})
	require.NoError(t, err)

	layer2, err := New(driver, "fp2", 10, nil)
	require.NoError(t, err)

	called := false
	fi, err := layer2.Resolve("hash-c", func() (mediamodel.FileInfo, error) {
		called = true
		return mediamodel.FileInfo{Path: "recomputed.jpg"}, nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "recomputed.jpg", fi.Path)
}
