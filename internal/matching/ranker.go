// internal/matching/ranker.go
package matching

import (
	"sort"

	"care-match-workers/internal/models"
)

// Rank sorts recommendations by descending score and assigns dense ranks
// 1..N. Ties keep their input order. The input slice is not modified.
func Rank(recs []models.ScoredRecommendation) []models.ScoredRecommendation {
	out := append([]models.ScoredRecommendation(nil), recs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
