package pipeline

import "flagbot/internal/models"

// BuildScoreVectors reshapes per-label probability columns into one ScoreVector per
// message, in LabelSet order. A missing column scores zero.
func BuildScoreVectors(columns map[models.Label][]float64, n int) []models.ScoreVector {
	out := make([]models.ScoreVector, n)
	for i := 0; i < n; i++ {
		v := make(models.ScoreVector, 0, len(models.LabelSet))
		for _, label := range models.LabelSet {
			var score float64
			if col := columns[label]; i < len(col) {
				score = col[i]
			}
			v = append(v, models.LabelScore{Label: label, Score: score})
		}
		out[i] = v
	}
	return out
}
