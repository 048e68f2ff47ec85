package registry

import "github.com/aprendu/aprendu-backend/internal/models"

// AxesSimilarity scores how close candidate is to current in subject matter.
// An axis counts toward the denominator when either side defines it and toward
// the numerator when both define it with the same value. Axes absent on both
// sides are ignored, so two empty axis sets score 0, not 1.
func AxesSimilarity(current, candidate models.Axes) float64 {
	var considered, matched int
	cur, cand := current.Values(), candidate.Values()
	for i := range cur {
		if cur[i] == "" && cand[i] == "" {
			continue
		}
		considered++
		if cur[i] != "" && cur[i] == cand[i] {
			matched++
		}
	}
	if considered == 0 {
		return 0
	}
	return float64(matched) / float64(considered)
}
