package search

import "github.com/hyperjump/miftah/internal/keyword"

// NormalizeKeywordScores scales keyword scores to [0,1] by the best score,
// keyed by kind/id.
func NormalizeKeywordScores(results []*keyword.KeywordResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	best := 0.0
	for _, r := range results {
		best = max(best, r.Score)
	}
	for _, r := range results {
		if best > 0 {
			normalized[recordKey(r.Kind, r.ID)] = r.Score / best
		} else {
			normalized[recordKey(r.Kind, r.ID)] = 0
		}
	}
	return normalized
}
