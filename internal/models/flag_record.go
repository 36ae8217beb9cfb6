package models

import "time"

// FlagRecord is a flagged or audit-sampled message persisted for later analysis.
type FlagRecord struct {
	ID         int64     `db:"id" json:"id"`
	RunID      string    `db:"run_id" json:"run_id"`
	ChatID     int64     `db:"chat_id" json:"chat_id"`
	MessageID  int64     `db:"message_id" json:"message_id"`
	AuthorID   int64     `db:"author_id" json:"author_id"`
	AuthorName string    `db:"author_name" json:"author_name"`
	Content    string    `db:"content" json:"content"`
	Decision   string    `db:"decision" json:"decision"`
	Scores     string    `db:"scores" json:"scores"` // JSON-encoded ScoreVector
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
