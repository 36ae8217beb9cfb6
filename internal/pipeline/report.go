package pipeline

import (
	"fmt"
	"math"
	"strings"

	"flagbot/internal/models"
)

const (
	reportTitle = "New Flagged Message!"
	reportColor = 0xff0000
)

// ReportBuilder renders flagged messages for reviewers.
type ReportBuilder struct {
	Threshold float64
	// Emojis are matched to LabelSet by position.
	Emojis []string
}

// Build returns one entry per flagged message, in order. It never returns nil.
func (b ReportBuilder) Build(flagged []models.ScoredMessage) []models.ReportEntry {
	entries := make([]models.ReportEntry, 0, len(flagged))
	for _, m := range flagged {
		entries = append(entries, b.entry(m))
	}
	return entries
}

func (b ReportBuilder) entry(m models.ScoredMessage) models.ReportEntry {
	fields := make([]models.ScoreField, 0, len(m.Scores))
	parts := make([]string, 0, len(m.Scores))
	for i, s := range m.Scores {
		field := models.ScoreField{
			Label:   s.Label,
			Emoji:   b.emoji(i, s.Label),
			Percent: int(math.RoundToEven(s.Score * 100)),
			Bold:    s.Score > b.Threshold,
		}
		fields = append(fields, field)

		pct := fmt.Sprintf("%d%%", field.Percent)
		if field.Bold {
			pct = "**" + pct + "**"
		}
		parts = append(parts, field.Emoji+" "+pct)
	}

	msg := m.Message
	return models.ReportEntry{
		Title:       reportTitle,
		Description: msg.Content,
		Origin:      fmt.Sprintf("%s / #%s", msg.Location.Server, msg.Location.Channel),
		AuthorLine:  fmt.Sprintf("%s (%d)", msg.Author.Name, msg.Author.ID),
		Scores:      fields,
		ScoreLine:   strings.Join(parts, " "),
		Permalink:   msg.Permalink,
		Color:       reportColor,
		ChatID:      msg.ChatID,
		MessageID:   msg.ID,
	}
}

func (b ReportBuilder) emoji(i int, label models.Label) string {
	if i < len(b.Emojis) {
		return b.Emojis[i]
	}
	return string(label)
}
