// Package catalog implements a supplemental SQLite-backed secondary
// index of transferred files, queried by the CLI's stats subcommand.
// Rows are upserted by path and never cleared, so the catalog
// accumulates across runs. It is not on the dedup core's critical path —
// the engine's correctness never depends on the catalog being present.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
)

// Catalog is a queryable summary of every file recorded so far.
type Catalog struct {
	db *sql.DB
}

// Open creates (or reuses) a SQLite database at path with the catalog
// schema.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", path, err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		size INTEGER,
		duration REAL,
		cluster_id INTEGER,
		score REAL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Record upserts a file's run summary.
func (c *Catalog) Record(fi mediamodel.FileInfo, clusterID int, score float64) error {
	_, err := c.db.Exec(
		`INSERT INTO files (path, size, duration, cluster_id, score)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET size=excluded.size, duration=excluded.duration,
			cluster_id=excluded.cluster_id, score=excluded.score`,
		fi.Path, fi.Stats.Size, fi.Media.Duration, clusterID, score,
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", fi.Path, err)
	}
	return nil
}

// Stats summarizes the catalog's current contents.
type Stats struct {
	TotalFiles   int
	TotalClusters int
	TotalBytes   int64
}

// Summarize computes aggregate stats over everything recorded so far.
func (c *Catalog) Summarize() (Stats, error) {
	var s Stats
	// Unclustered files are recorded with cluster_id -1 and are not a cluster.
	row := c.db.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT CASE WHEN cluster_id >= 0 THEN cluster_id END), COALESCE(SUM(size), 0) FROM files`)
	if err := row.Scan(&s.TotalFiles, &s.TotalClusters, &s.TotalBytes); err != nil {
		return Stats{}, fmt.Errorf("summarizing catalog: %w", err)
	}
	return s, nil
}

// Close closes the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}
