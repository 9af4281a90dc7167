package dbscan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediadedupe/mediadedupe/internal/mediahash"
	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
	"github.com/mediadedupe/mediadedupe/internal/similarity"
	"github.com/mediadedupe/mediadedupe/internal/simconfig"
	"github.com/mediadedupe/mediadedupe/internal/vptree"
)

func bitsAt(n int, set ...int) mediahash.BitHash {
	b := make([]bool, n)
	for _, i := range set {
		b[i] = true
	}
	return mediahash.NewBitHash(b)
}

func fileWithHash(path string, h mediahash.BitHash) mediamodel.FileInfo {
	return mediamodel.FileInfo{
		Path:  path,
		Media: mediamodel.MediaInfo{Frames: []mediamodel.FrameInfo{{Hash: h}}},
	}
}

func buildTreeAndEngine(t *testing.T, files []mediamodel.FileInfo, cfg simconfig.SimilarityConfig) *Engine {
	t.Helper()
	kernel := similarity.New(cfg, nil)
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
	tree, err := vptree.Build(context.Background(), indices, metric)
	require.NoError(t, err)
	return New(files, tree, kernel, cfg, nil)
}

func TestRunGroupsNearIdenticalFilesIntoOneCluster(t *testing.T) {
	cfg := simconfig.Default()
	cfg.ImageImageThreshold = 0.9
	cfg.MinPts = 2
	cfg.ClusterBatchSize = 2

	files := []mediamodel.FileInfo{
		fileWithHash("a.jpg", bitsAt(16, 0, 1)),
		fileWithHash("b.jpg", bitsAt(16, 0, 1)),
		fileWithHash("c.jpg", bitsAt(16, 0, 1)),
		fileWithHash("z.jpg", bitsAt(16, 2, 3, 4, 5, 6, 7, 8, 9)),
	}

	engine := buildTreeAndEngine(t, files, cfg)
	clusters, noise, err := engine.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0], 3)
	assert.Contains(t, noise, "z.jpg")
}

func TestRunClustersExactDuplicatePair(t *testing.T) {
	cfg := simconfig.Default()
	cfg.ImageImageThreshold = 0.9
	cfg.MinPts = 2

	files := []mediamodel.FileInfo{
		fileWithHash("a.jpg", bitsAt(16, 0, 1)),
		fileWithHash("a_copy.jpg", bitsAt(16, 0, 1)),
	}

	engine := buildTreeAndEngine(t, files, cfg)
	clusters, noise, err := engine.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0], 2)
	assert.Empty(t, noise)
}

func TestRunWithNoSimilarFilesProducesAllNoise(t *testing.T) {
	cfg := simconfig.Default()
	cfg.ImageImageThreshold = 0.99
	cfg.MinPts = 2

	files := []mediamodel.FileInfo{
		fileWithHash("a.jpg", bitsAt(8, 0)),
		fileWithHash("b.jpg", bitsAt(8, 1, 2, 3)),
		fileWithHash("c.jpg", bitsAt(8, 4, 5, 6, 7)),
	}

	engine := buildTreeAndEngine(t, files, cfg)
	clusters, noise, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, clusters)
	assert.Len(t, noise, 3)
}

func TestRunEmptyInput(t *testing.T) {
	cfg := simconfig.Default()
	engine := buildTreeAndEngine(t, nil, cfg)
	clusters, noise, err := engine.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, clusters)
	assert.Nil(t, noise)
}
