// Package report renders a DeduplicationResult as human-readable text
// or machine-readable JSON, adapted from the teacher's report package.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/mediadedupe/mediadedupe/internal/mediamodel"
)

// Summary is the JSON-serializable shape of a run report.
type Summary struct {
	ClusterCount int                 `json:"cluster_count"`
	NoiseCount   int                 `json:"noise_count"`
	Clusters     []ClusterSummary    `json:"clusters"`
}

// ClusterSummary describes one cluster and its chosen representative.
type ClusterSummary struct {
	Members  []string `json:"members"`
	Primary  string   `json:"primary"`
	Captures []string `json:"captures,omitempty"`
}

// Build assembles a Summary from a DeduplicationResult.
func Build(result mediamodel.DeduplicationResult) Summary {
	s := Summary{
		ClusterCount: len(result.Clusters),
		NoiseCount:   len(result.Noise),
	}
	for i, cluster := range result.Clusters {
		cs := ClusterSummary{Members: cluster.Paths()}
		if rep, ok := result.Representatives[i]; ok {
			cs.Primary = rep.Primary
			cs.Captures = rep.Captures
		}
		s.Clusters = append(s.Clusters, cs)
	}
	return s
}

// JSON renders the summary as indented JSON.
func JSON(result mediamodel.DeduplicationResult) ([]byte, error) {
	return json.MarshalIndent(Build(result), "", "  ")
}

// Text renders the summary as a plain-text report.
func Text(result mediamodel.DeduplicationResult, totalBytes int64) string {
	s := Build(result)
	var b strings.Builder
	fmt.Fprintf(&b, "mediadedupe report\n")
	fmt.Fprintf(&b, "  clusters: %d\n", s.ClusterCount)
	fmt.Fprintf(&b, "  noise files: %d\n", s.NoiseCount)
	fmt.Fprintf(&b, "  scanned: %s\n", humanize.Bytes(uint64(totalBytes)))
	for i, cs := range s.Clusters {
		fmt.Fprintf(&b, "\ncluster %d (%d files)\n", i, len(cs.Members))
		fmt.Fprintf(&b, "  keep: %s\n", cs.Primary)
		for _, c := range cs.Captures {
			fmt.Fprintf(&b, "  also keep: %s\n", c)
		}
	}
	return b.String()
}
