package models

// ScoreField is the rendered score of one label inside a report.
type ScoreField struct {
	Label   Label  `json:"label"`
	Emoji   string `json:"emoji"`
	Percent int    `json:"percent"`
	Bold    bool   `json:"bold"`
}

// ReportEntry is a presentation-ready description of a flagged message.
type ReportEntry struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Origin      string       `json:"origin"`
	AuthorLine  string       `json:"author"`
	Scores      []ScoreField `json:"scores"`
	ScoreLine   string       `json:"score_line"`
	Permalink   string       `json:"permalink"`
	Color       int          `json:"color"`
	ChatID      int64        `json:"chat_id"`
	MessageID   int64        `json:"message_id"`
}
