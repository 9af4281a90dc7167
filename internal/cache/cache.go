// Package cache implements the CacheLayer: content-hash-keyed
// memoization of a file's computed FileInfo, deduplicating concurrent
// requests for the same key via single-flight and invalidating stale
// entries when the similarity configuration changes between runs.
package cache

import (
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/mediadedupe/mediadedupe/internal/cachekv"
	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
)

const (
	dataStoreName   = "data"
	configStoreName = "config"
	fingerprintKey  = "fingerprint"
)

// Layer is the CacheLayer: a content-addressed store of computed
// FileInfo values fronted by an in-process LRU, backed by a
// cachekv.Driver, with per-key single-flight so concurrent requests for
// the same content hash compute it only once.
type Layer struct {
	driver      cachekv.Driver
	data        cachekv.Store
	config      cachekv.Store
	fingerprint string
	group       singleflight.Group
	memo        *lru.Cache[string, mediamodel.FileInfo]
	logger      *logrus.Logger
}

// New opens (or reuses) the driver's data/config sub-stores, checks the
// stored config fingerprint against current, and returns a ready Layer.
// A fingerprint mismatch does not erase old entries (they are simply
// namespaced by fingerprint and become unreachable).
func New(driver cachekv.Driver, fingerprint string, lruSize int, logger *logrus.Logger) (*Layer, error) {
	if logger == nil {
		logger = logrus.New()
	}
	data, err := driver.Store(dataStoreName)
	if err != nil {
		return nil, fmt.Errorf("opening data store: %w", err)
	}
	cfgStore, err := driver.Store(configStoreName)
	if err != nil {
		return nil, fmt.Errorf("opening config store: %w", err)
	}

	stored, err := cfgStore.Get([]byte(fingerprintKey))
	if err != nil {
		return nil, fmt.Errorf("reading config fingerprint: %w", err)
	}
	if string(stored) != fingerprint {
		logger.WithFields(logrus.Fields{
			"old": string(stored),
			"new": fingerprint,
		}).Info("similarity config changed, cache entries under the old fingerprint are now unreachable")
		if err := cfgStore.Put([]byte(fingerprintKey), []byte(fingerprint)); err != nil {
			return nil, fmt.Errorf("writing config fingerprint: %w", err)
		}
	}

	if lruSize <= 0 {
		lruSize = 4096
	}
	memo, err := lru.New[string, mediamodel.FileInfo](lruSize)
	if err != nil {
		return nil, fmt.Errorf("creating lru: %w", err)
	}

	return &Layer{
		driver:      driver,
		data:        data,
		config:      cfgStore,
		fingerprint: fingerprint,
		memo:        memo,
		logger:      logger,
	}, nil
}

// Resolve returns the FileInfo for contentHash, computing it via compute
// on a cache miss. Concurrent Resolve calls for the same contentHash
// share one in-flight compute via single-flight.
func (l *Layer) Resolve(contentHash string, compute func() (mediamodel.FileInfo, error)) (mediamodel.FileInfo, error) {
	if fi, ok := l.memo.Get(contentHash); ok {
		return fi, nil
	}

	key := l.namespacedKey(contentHash)
	v, err, _ := l.group.Do(contentHash, func() (interface{}, error) {
		raw, err := l.data.Get([]byte(key))
		if err != nil {
			return mediamodel.FileInfo{}, fmt.Errorf("reading cache entry: %w", err)
		}
		if raw != nil {
			var fi mediamodel.FileInfo
			if err := json.Unmarshal(raw, &fi); err != nil {
				return mediamodel.FileInfo{}, fmt.Errorf("decoding cache entry: %w", err)
			}
			return fi, nil
		}

		fi, err := compute()
		if err != nil {
			return mediamodel.FileInfo{}, err
		}
		encoded, err := json.Marshal(fi)
		if err != nil {
			return mediamodel.FileInfo{}, fmt.Errorf("encoding cache entry: %w", err)
		}
		if err := l.data.Put([]byte(key), encoded); err != nil {
			return mediamodel.FileInfo{}, fmt.Errorf("writing cache entry: %w", err)
		}
		return fi, nil
	})
	if err != nil {
		return mediamodel.FileInfo{}, err
	}

	fi := v.(mediamodel.FileInfo)
	l.memo.Add(contentHash, fi)
	return fi, nil
}

func (l *Layer) namespacedKey(contentHash string) string {
	return l.fingerprint + ":" + contentHash
}

// Close releases the underlying driver.
func (l *Layer) Close() error {
	return l.driver.Close()
}
