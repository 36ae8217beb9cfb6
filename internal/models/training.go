package models

// TrainingExample is one labeled row of a training corpus.
// A nil label value means the corpus had no value for that label on this row.
type TrainingExample struct {
	Text   string
	Labels map[Label]*float64
}

// Value returns the label value and whether it is present.
func (e TrainingExample) Value(label Label) (float64, bool) {
	v, ok := e.Labels[label]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}
