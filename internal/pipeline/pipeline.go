// Package pipeline orchestrates the full run: a worker pool resolves
// each input path into a cached FileInfo, a VP-tree indexes the result,
// DBSCAN clusters it, and the selector picks representatives — mirroring
// the teacher's pkg/engine orchestration shape generalized to the new
// domain model.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mediadedupe/mediadedupe/internal/cache"
	"github.com/mediadedupe/mediadedupe/internal/dbscan"
	"github.com/mediadedupe/mediadedupe/internal/filestat"
	"github.com/mediadedupe/mediadedupe/internal/frame"
	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
	"github.com/mediadedupe/mediadedupe/internal/metaread"
	"github.com/mediadedupe/mediadedupe/internal/selector"
	"github.com/mediadedupe/mediadedupe/internal/similarity"
	"github.com/mediadedupe/mediadedupe/internal/simconfig"
	"github.com/mediadedupe/mediadedupe/internal/vptree"
)

// Pipeline wires the gather, index, cluster and select stages together.
type Pipeline struct {
	cfg      simconfig.SimilarityConfig
	workers  int
	cache    *cache.Layer
	frames   frame.Supplier
	metadata metaread.Supplier
	stats    filestat.Supplier
	selector *selector.Selector
	logger   *logrus.Logger
}

// New builds a Pipeline from its collaborators.
func New(
	cfg simconfig.SimilarityConfig,
	workers int,
	cacheLayer *cache.Layer,
	frames frame.Supplier,
	metadata metaread.Supplier,
	stats filestat.Supplier,
	sel *selector.Selector,
	logger *logrus.Logger,
) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	if workers <= 0 {
		workers = runtime.NumCPU() - 1
		if workers < 1 {
			workers = 1
		}
	}
	return &Pipeline{
		cfg: cfg, workers: workers, cache: cacheLayer,
		frames: frames, metadata: metadata, stats: stats,
		selector: sel, logger: logger,
	}
}

// Run resolves every path, clusters the results and selects a
// representative per cluster. Cancellation is cooperative: once ctx is
// cancelled, paths not yet started are not resolved, resolutions already
// in flight run until they next consult ctx (frame extraction does; file
// hashing and metadata reads do not), and clustering stops with ctx's
// error.
func (p *Pipeline) Run(ctx context.Context, paths []string) (mediamodel.DeduplicationResult, map[string]mediamodel.FileInfo, error) {
	files, failed, err := p.gather(ctx, paths)
	if err != nil {
		return mediamodel.DeduplicationResult{}, nil, fmt.Errorf("gather stage: %w", err)
	}
	if len(files) == 0 {
		return mediamodel.DeduplicationResult{Failed: failed}, nil, nil
	}

	kernel := similarity.New(p.cfg, p.logger)

	metric := func(ctx context.Context, a, b int) (float64, error) {
		sim, err := kernel.Similarity(files[a], files[b])
		if err != nil {
			return 0, err
		}
		return 1.0 - sim, nil
	}
	indices := make([]int, len(files))
	for i := range indices {
		indices[i] = i
	}
	tree, err := vptree.Build(ctx, indices, metric)
	if err != nil {
		return mediamodel.DeduplicationResult{}, nil, fmt.Errorf("building index: %w", err)
	}

	engine := dbscan.New(files, tree, kernel, p.cfg, p.logger)
	clusters, noise, err := engine.Run(ctx)
	if err != nil {
		return mediamodel.DeduplicationResult{}, nil, fmt.Errorf("clustering: %w", err)
	}

	byPath := make(map[string]mediamodel.FileInfo, len(files))
	for _, fi := range files {
		byPath[fi.Path] = fi
	}

	reps := make(map[int]mediamodel.Representative, len(clusters))
	for i, c := range clusters {
		rep, err := p.selector.Select(c, byPath)
		if err != nil {
			return mediamodel.DeduplicationResult{}, nil, fmt.Errorf("selecting representative for cluster %d: %w", i, err)
		}
		reps[i] = rep
	}

	return mediamodel.DeduplicationResult{
		Clusters:        clusters,
		Representatives: reps,
		Noise:           noise,
		Failed:          failed,
	}, byPath, nil
}

// gather resolves each path to a FileInfo using a bounded worker pool,
// consulting the cache layer so repeat runs over unchanged files skip
// frame decoding and metadata extraction entirely.
func (p *Pipeline) gather(ctx context.Context, paths []string) ([]mediamodel.FileInfo, []string, error) {
	results := make([]mediamodel.FileInfo, len(paths))
	var mu sync.Mutex
	var failed []string

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			fi, err := p.resolve(gctx, path)
			if err != nil {
				p.logger.WithError(err).WithField("path", path).Warn("skipping file")
				mu.Lock()
				failed = append(failed, path)
				mu.Unlock()
				return nil
			}
			results[i] = fi
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := make([]mediamodel.FileInfo, 0, len(results))
	for _, fi := range results {
		if fi.Path != "" {
			out = append(out, fi)
		}
	}
	if len(failed) > 0 {
		p.logger.WithField("count", len(failed)).Warn("some files could not be resolved")
	}
	return out, failed, nil
}

func (p *Pipeline) resolve(ctx context.Context, path string) (mediamodel.FileInfo, error) {
	stats, err := p.stats.Stat(path)
	if err != nil {
		return mediamodel.FileInfo{}, err
	}

	fi, err := p.cache.Resolve(stats.ContentHash, func() (mediamodel.FileInfo, error) {
		media, err := p.frames.Frames(ctx, path)
		if err != nil {
			return mediamodel.FileInfo{}, err
		}
		meta, err := p.metadata.Read(path)
		if err != nil {
			return mediamodel.FileInfo{}, err
		}
		return mediamodel.FileInfo{
			Path:     path,
			Stats:    stats,
			Metadata: meta,
			Media:    media,
		}, nil
	})
	if err != nil {
		return mediamodel.FileInfo{}, err
	}
	// The cache is keyed by content, so a hit may come from another file
	// with identical bytes; the path and stats are always this file's own.
	fi.Path = path
	fi.Stats = stats
	return fi, nil
}
