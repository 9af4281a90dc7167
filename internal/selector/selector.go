// Package selector implements the RepresentativeSelector: it scores the
// files in a cluster, picks the best one to keep, and — when the best
// is a video — finds still images in the same cluster that are
// "potential captures" (the still half of a live-photo pair, a frame
// grab kept alongside its source clip) and re-runs them through the
// dedup engine so only their own unique subset joins the
// representative set.
package selector

import (
	"context"
	"math"
	"sort"

	"github.com/mediadedupe/mediadedupe/internal/dbscan"
	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
	"github.com/mediadedupe/mediadedupe/internal/similarity"
	"github.com/mediadedupe/mediadedupe/internal/simconfig"
	"github.com/mediadedupe/mediadedupe/internal/vptree"
)

// Selector scores FileInfos and picks representatives per cluster.
type Selector struct {
	kernel            *similarity.Kernel
	cfg               simconfig.SimilarityConfig
	maxRecursionDepth int
}

// New builds a Selector. cfg is reused to re-run the dedup engine over
// a cluster's potential captures; maxDepth bounds that recursion.
func New(kernel *similarity.Kernel, cfg simconfig.SimilarityConfig, maxDepth int) *Selector {
	return &Selector{kernel: kernel, cfg: cfg, maxRecursionDepth: maxDepth}
}

// Score computes the representative-selection score for a single file,
// per spec.md §4.7's literal formula: a large bonus for being a video
// (duration carries more information than a still), a log-compressed
// duration term, fixed bonuses for each present metadata field, the
// geometric mean of width and height for resolution, and a
// log-compressed file-size term.
func (s *Selector) Score(fi mediamodel.FileInfo) float64 {
	score := 0.0
	duration := fi.Media.Duration

	if duration > 0 {
		score += 10000
	}
	score += 100 * math.Log(duration+1)

	if fi.Metadata.ImageDate != nil {
		score += 2000
	}
	if fi.Metadata.GPSLat != nil && fi.Metadata.GPSLon != nil {
		score += 300
	}
	if fi.Metadata.CameraModel != nil {
		score += 200
	}
	if fi.HasDimensions() {
		score += math.Sqrt(float64(*fi.Metadata.Width) * float64(*fi.Metadata.Height))
	}
	if fi.Stats.Size > 0 {
		score += 5 * math.Log(float64(fi.Stats.Size))
	}

	return score
}

// Select picks the best file in cluster and, if it is a video, any
// potential-capture co-representatives.
func (s *Selector) Select(cluster mediamodel.Cluster, files map[string]mediamodel.FileInfo) (mediamodel.Representative, error) {
	return s.selectDepth(cluster.Paths(), files, 0)
}

func (s *Selector) selectDepth(paths []string, files map[string]mediamodel.FileInfo, depth int) (mediamodel.Representative, error) {
	if len(paths) == 0 {
		return mediamodel.Representative{}, nil
	}

	// Sort lexically first so the score sort below is stable on ties,
	// giving a deterministic stand-in for spec.md §4.7's "ties broken
	// by insertion order" (sets carry no natural insertion order).
	sort.Strings(paths)
	sort.SliceStable(paths, func(i, j int) bool {
		return s.Score(files[paths[i]]) > s.Score(files[paths[j]])
	})

	best := paths[0]
	bestFI := files[best]

	if bestFI.Media.Duration == 0 {
		return mediamodel.Representative{Primary: best}, nil
	}

	var potential []string
	for _, p := range paths[1:] {
		fi := files[p]
		if fi.Media.Duration != 0 {
			continue
		}
		if fi.Resolution() < bestFI.Resolution() {
			continue
		}
		if bestFI.Metadata.ImageDate != nil && fi.Metadata.ImageDate == nil {
			continue
		}
		potential = append(potential, p)
	}
	if len(potential) == 0 {
		return mediamodel.Representative{Primary: best}, nil
	}
	if depth >= s.maxRecursionDepth {
		return mediamodel.Representative{Primary: best, Captures: potential}, nil
	}

	captures, err := s.rerunDedup(potential, files, depth)
	if err != nil {
		return mediamodel.Representative{}, err
	}

	return mediamodel.Representative{Primary: best, Captures: captures}, nil
}

// rerunDedup re-clusters a cluster's potential captures through the
// same VP-tree/DBSCAN machinery the top-level pipeline uses (spec.md
// §9's "representative recursion"), so near-duplicates among the
// potential captures collapse to their own best file instead of all
// surviving individually.
func (s *Selector) rerunDedup(paths []string, files map[string]mediamodel.FileInfo, depth int) ([]string, error) {
	if len(paths) == 1 {
		return paths, nil
	}

	subset := make([]mediamodel.FileInfo, len(paths))
	for i, p := range paths {
		subset[i] = files[p]
	}

	ctx := context.Background()
	metric := func(ctx context.Context, a, b int) (float64, error) {
		sim, err := s.kernel.Similarity(subset[a], subset[b])
		if err != nil {
			return 0, err
		}
		return 1.0 - sim, nil
	}
	indices := make([]int, len(subset))
	for i := range indices {
		indices[i] = i
	}
	tree, err := vptree.Build(ctx, indices, metric)
	if err != nil {
		return nil, err
	}

	engine := dbscan.New(subset, tree, s.kernel, s.cfg, nil)
	clusters, noise, err := engine.Run(ctx)
	if err != nil {
		return nil, err
	}

	out := append([]string{}, noise...)
	for _, c := range clusters {
		sub, err := s.selectDepth(c.Paths(), files, depth+1)
		if err != nil {
			return nil, err
		}
		if sub.Primary != "" {
			out = append(out, sub.Primary)
			out = append(out, sub.Captures...)
		}
	}
	return out, nil
}
