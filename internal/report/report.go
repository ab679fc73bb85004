// Package report assembles scan and ranking results into a run report.
package report

import (
	"github.com/lyndonlyu/tokenscope/internal/recommend"
	"github.com/lyndonlyu/tokenscope/internal/scan"
)

// DefaultTopN is how many files the token distribution lists.
const DefaultTopN = 10

// Meta describes how a run was invoked.
type Meta struct {
	RunID    string `json:"run_id"`
	Locator  string `json:"locator"`
	RepoPath string `json:"repo_path"`
	Subpath  string `json:"subpath,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
	CacheHit bool   `json:"cache_hit"`
}

// Report is the rendered outcome of one run.
type Report struct {
	Meta
	Total           int                        `json:"total_tokens"`
	AllFiles        []string                   `json:"all_files"`
	Top             []scan.FileRecord          `json:"top_files"`
	Failed          []scan.FileOutcome         `json:"failed_files,omitempty"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Optimal         *recommend.Recommendation  `json:"optimal,omitempty"`
}

// Build ranks res and keeps its topN largest files. A result without tokens
// produces a report with no recommendations.
func Build(meta Meta, res *scan.Result, topN int) *Report {
	if topN <= 0 {
		topN = DefaultTopN
	}

	r := &Report{
		Meta:     meta,
		Total:    res.Total,
		AllFiles: res.AllFiles,
		Failed:   res.Failed(),
	}
	if r.AllFiles == nil {
		r.AllFiles = []string{}
	}
	if res.Empty() {
		return r
	}

	r.Top = res.Top(topN)
	r.Recommendations = recommend.Recommend(res.Total)
	if best, ok := recommend.Optimal(r.Recommendations); ok {
		r.Optimal = &best
	}
	return r
}

// Empty reports whether the run found nothing to count.
func (r *Report) Empty() bool {
	return r.Total == 0
}
