package models

// Label is one moderation category scored independently.
type Label string

const (
	LabelInsult       Label = "insult"
	LabelSevereToxic  Label = "severe_toxic"
	LabelIdentityHate Label = "identity_hate"
	LabelThreat       Label = "threat"
	LabelNSFW         Label = "nsfw"
)

// LabelSet is the fixed, ordered set of labels. Score vectors, corpus columns and
// reaction emojis all follow this order.
var LabelSet = []Label{
	LabelInsult,
	LabelSevereToxic,
	LabelIdentityHate,
	LabelThreat,
	LabelNSFW,
}

// IsKnownLabel reports whether name is a member of LabelSet.
func IsKnownLabel(name string) bool {
	for _, l := range LabelSet {
		if string(l) == name {
			return true
		}
	}
	return false
}
