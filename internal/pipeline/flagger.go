package pipeline

import (
	"math/rand"

	"flagbot/internal/models"
)

// DefaultSampleRate is the share of clean messages kept for audit.
const DefaultSampleRate = 0.01

// Flagger decides which scored messages are flagged or kept for audit.
type Flagger struct {
	Threshold  float64
	SampleRate float64
}

// Classify sets the Decision of every message, in batch order, and returns the flagged
// and sampled-clean subsets. Empty cleaned text is ignored before any other check.
func (f Flagger) Classify(scored []models.ScoredMessage, rng *rand.Rand) (flagged, sampled []models.ScoredMessage) {
	flagged = []models.ScoredMessage{}
	sampled = []models.ScoredMessage{}
	for i := range scored {
		m := &scored[i]
		switch {
		case m.Cleaned == "":
			m.Decision = models.DecisionIgnored
		case m.Scores.Exceeds(f.Threshold):
			m.Decision = models.DecisionFlagged
			flagged = append(flagged, *m)
		case rng.Float64() < f.SampleRate:
			m.Decision = models.DecisionSampledClean
			sampled = append(sampled, *m)
		default:
			m.Decision = models.DecisionIgnored
		}
	}
	return flagged, sampled
}
