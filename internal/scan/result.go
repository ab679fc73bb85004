package scan

import "sort"

// Status tags the outcome for one discovered file.
type Status int

const (
	Counted     Status = iota // eligible, read and counted
	Unsupported               // not eligible; no token accounting
	Failed                    // eligible but could not be read
)

func (s Status) String() string {
	switch s {
	case Counted:
		return "counted"
	case Unsupported:
		return "unsupported"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// FileRecord is the token count of one counted file.
type FileRecord struct {
	Path   string `json:"path"`
	Tokens int    `json:"tokens"`
}

// FileOutcome is the tagged per-file result of a scan.
type FileOutcome struct {
	Path   string `json:"path"`
	Status Status `json:"-"`
	Tokens int    `json:"tokens,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Result is everything one scan found. Paths are relative to the repository
// root and slash-separated.
type Result struct {
	Root     string
	Subpath  string
	Total    int
	Files    []FileRecord  // counted files in discovery order
	AllFiles []string      // every discovered file, counted or not
	Outcomes []FileOutcome // one per entry in AllFiles, same order
}

// Empty reports whether no tokens were counted.
func (r *Result) Empty() bool {
	return r.Total == 0
}

// Top returns up to n counted files, most tokens first. Ties are ordered by
// path so output is reproducible.
func (r *Result) Top(n int) []FileRecord {
	sorted := make([]FileRecord, len(r.Files))
	copy(sorted, r.Files)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Tokens != sorted[j].Tokens {
			return sorted[i].Tokens > sorted[j].Tokens
		}
		return sorted[i].Path < sorted[j].Path
	})
	if n >= 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// Tokens returns the count recorded for path and whether it was counted.
func (r *Result) Tokens(path string) (int, bool) {
	for _, f := range r.Files {
		if f.Path == path {
			return f.Tokens, true
		}
	}
	return 0, false
}

// Failed returns the outcomes of eligible files that could not be read.
func (r *Result) Failed() []FileOutcome {
	return r.withStatus(Failed)
}

// Skipped returns the outcomes of files that were not eligible.
func (r *Result) Skipped() []FileOutcome {
	return r.withStatus(Unsupported)
}

func (r *Result) withStatus(s Status) []FileOutcome {
	var out []FileOutcome
	for _, o := range r.Outcomes {
		if o.Status == s {
			out = append(out, o)
		}
	}
	return out
}
