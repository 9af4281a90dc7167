// Package dbscan implements density-based clustering over a set of
// media files, accelerated by a vantage-point tree and parallelized
// across batches of candidate seed points.
package dbscan

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
	"github.com/mediadedupe/mediadedupe/internal/similarity"
	"github.com/mediadedupe/mediadedupe/internal/simconfig"
)

// NeighborIndex is the subset of *vptree.Tree[int] the engine needs: a
// range query over item indices.
type NeighborIndex interface {
	RangeSearch(ctx context.Context, target int, eps float64) ([]int, error)
}

// Engine runs DBSCAN (minPts from cfg, eps derived from cfg's thresholds)
// over a fixed slice of files, using tree for candidate retrieval and
// kernel for the exact adaptive-threshold re-check spec.md requires
// before a candidate counts as a true neighbor.
type Engine struct {
	files  []mediamodel.FileInfo
	tree   NeighborIndex
	kernel *similarity.Kernel
	cfg    simconfig.SimilarityConfig
	logger *logrus.Logger
}

// New builds an Engine. tree must have been built over the same index
// space as files (tree item i corresponds to files[i]).
func New(files []mediamodel.FileInfo, tree NeighborIndex, kernel *similarity.Kernel, cfg simconfig.SimilarityConfig, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{files: files, tree: tree, kernel: kernel, cfg: cfg, logger: logger}
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

type state struct {
	mu        sync.Mutex
	visited   []bool
	clusterOf []int // -1 if unassigned
	members   map[int][]int
	edges     [][2]int
	nextID    int64
	noise     []int
}

// Run executes the batched clustering and returns the resulting
// clusters plus any files that never joined one.
func (e *Engine) Run(ctx context.Context) ([]mediamodel.Cluster, []string, error) {
	n := len(e.files)
	if n == 0 {
		return nil, nil, nil
	}

	st := &state{
		visited:   make([]bool, n),
		clusterOf: make([]int, n),
		members:   make(map[int][]int),
	}
	for i := range st.clusterOf {
		st.clusterOf[i] = -1
	}

	batchSize := e.cfg.ClusterBatchSize
	if batchSize <= 0 {
		batchSize = n
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		batch := make([]int, end-start)
		for i := range batch {
			batch[i] = start + i
		}
		g.Go(func() error {
			return e.processBatch(gctx, st, batch)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	uf := newUnionFind(int(atomic.LoadInt64(&st.nextID)))
	for _, edge := range st.edges {
		uf.union(int(edge[0]), int(edge[1]))
	}

	merged := make(map[int][]int)
	for cid, members := range st.members {
		root := uf.find(cid)
		merged[root] = append(merged[root], members...)
	}

	var clusters []mediamodel.Cluster
	assigned := make([]bool, n)
	for _, members := range merged {
		if len(members) == 0 {
			continue
		}
		c := make(mediamodel.Cluster, len(members))
		for _, idx := range members {
			c[e.files[idx].Path] = struct{}{}
			assigned[idx] = true
		}
		clusters = append(clusters, c)
	}

	var noise []string
	for _, idx := range st.noise {
		if !assigned[idx] {
			noise = append(noise, e.files[idx].Path)
		}
	}

	e.logger.WithFields(logrus.Fields{
		"clusters": len(clusters),
		"noise":    len(noise),
		"files":    n,
	}).Info("dbscan run complete")

	return clusters, noise, nil
}

func (e *Engine) processBatch(ctx context.Context, st *state, batch []int) error {
	for _, p := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}

		st.mu.Lock()
		if st.visited[p] {
			st.mu.Unlock()
			continue
		}
		st.visited[p] = true
		st.mu.Unlock()

		neighbors, err := e.filteredNeighbors(ctx, p)
		if err != nil {
			return err
		}
		if !isCorePoint(neighbors, e.cfg.MinPts) {
			st.mu.Lock()
			st.noise = append(st.noise, p)
			st.mu.Unlock()
			continue
		}

		cid := atomic.AddInt64(&st.nextID, 1) - 1
		st.mu.Lock()
		st.clusterOf[p] = int(cid)
		st.members[int(cid)] = append(st.members[int(cid)], p)
		st.mu.Unlock()

		seeds := append([]int{}, neighbors...)
		for i := 0; i < len(seeds); i++ {
			q := seeds[i]
			if q == p {
				continue
			}

			st.mu.Lock()
			if existing := st.clusterOf[q]; existing != -1 {
				if existing != int(cid) {
					st.edges = append(st.edges, [2]int{int(cid), existing})
				}
				st.mu.Unlock()
				continue
			}
			if st.visited[q] {
				st.mu.Unlock()
				continue
			}
			st.visited[q] = true
			st.clusterOf[q] = int(cid)
			st.members[int(cid)] = append(st.members[int(cid)], q)
			st.mu.Unlock()

			qNeighbors, err := e.filteredNeighbors(ctx, q)
			if err != nil {
				return err
			}
			if isCorePoint(qNeighbors, e.cfg.MinPts) {
				seeds = append(seeds, qNeighbors...)
			}
		}
	}
	return nil
}

// isCorePoint reports whether a point with the given (self-excluded)
// validated neighbor count meets minPts. filteredNeighbors never
// includes the point itself, so the point's own membership accounts
// for one of the minPts, per spec.md §4.5's minPts=2 semantics: two
// exact duplicates (one neighbor each) already form a cluster.
func isCorePoint(neighbors []int, minPts int) bool {
	return len(neighbors)+1 >= minPts
}

// filteredNeighbors retrieves VP-tree candidates within the configured
// (widest) epsilon, then re-validates each one against the exact
// per-media-kind threshold before counting it as a true neighbor.
func (e *Engine) filteredNeighbors(ctx context.Context, idx int) ([]int, error) {
	candidates, err := e.tree.RangeSearch(ctx, idx, e.cfg.Eps())
	if err != nil {
		return nil, err
	}

	a := e.files[idx]
	var out []int
	for _, c := range candidates {
		if c == idx {
			continue
		}
		b := e.files[c]
		sim, err := e.kernel.Similarity(a, b)
		if err != nil {
			return nil, err
		}
		threshold := e.kernel.Threshold(a.Media.IsVideo(), b.Media.IsVideo())
		if sim >= threshold {
			out = append(out, c)
		}
	}
	return out, nil
}
