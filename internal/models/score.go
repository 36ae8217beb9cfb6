package models

// LabelScore is the probability assigned to a single label.
type LabelScore struct {
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// ScoreVector holds one probability per label, in LabelSet order.
type ScoreVector []LabelScore

// Get returns the score for label.
func (v ScoreVector) Get(label Label) (float64, bool) {
	for _, s := range v {
		if s.Label == label {
			return s.Score, true
		}
	}
	return 0, false
}

// Exceeds reports whether any label scores strictly above threshold.
func (v ScoreVector) Exceeds(threshold float64) bool {
	for _, s := range v {
		if s.Score > threshold {
			return true
		}
	}
	return false
}

// FlagDecision is the outcome of flagging a single message.
type FlagDecision string

const (
	DecisionFlagged      FlagDecision = "flagged"
	DecisionSampledClean FlagDecision = "sampled-clean"
	DecisionIgnored      FlagDecision = "ignored"
)

// ScoredMessage is a message together with its cleaned text, scores and decision.
type ScoredMessage struct {
	Message  RawMessage   `json:"message"`
	Cleaned  string       `json:"cleaned"`
	Scores   ScoreVector  `json:"scores"`
	Decision FlagDecision `json:"decision"`
}
