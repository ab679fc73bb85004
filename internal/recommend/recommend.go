// Package recommend ranks language models by how much of a repository their
// context window can hold.
package recommend

import "sort"

// Profile is a model and its context window in tokens.
type Profile struct {
	Name    string `json:"name"`
	Context int    `json:"context"`
}

// profiles is the fixed comparison table. Declaration order breaks ties.
var profiles = []Profile{
	{Name: "GPT-3.5 Turbo", Context: 4096},
	{Name: "GPT-4", Context: 8192},
	{Name: "Claude", Context: 100000},
	{Name: "Llama 2", Context: 4096},
	{Name: "GPT-4 Turbo", Context: 128000},
}

// Recommendation is a profile with the share of the repository it covers.
type Recommendation struct {
	Profile
	Coverage float64 `json:"coverage"` // percent, 0-100
}

// Profiles returns a copy of the comparison table.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// Coverage returns the percentage of total tokens a window of size context
// holds, capped at 100. Zero tokens fit in any window.
func Coverage(context, total int) float64 {
	if total == 0 {
		return 100
	}
	return min(100, 100*float64(context)/float64(total))
}

// Recommend scores every profile against total and orders them by coverage,
// highest first.
func Recommend(total int) []Recommendation {
	recs := make([]Recommendation, 0, len(profiles))
	for _, p := range profiles {
		recs = append(recs, Recommendation{Profile: p, Coverage: Coverage(p.Context, total)})
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Coverage > recs[j].Coverage
	})
	return recs
}

// Optimal returns the best-ranked recommendation, if any.
func Optimal(recs []Recommendation) (Recommendation, bool) {
	if len(recs) == 0 {
		return Recommendation{}, false
	}
	return recs[0], true
}
