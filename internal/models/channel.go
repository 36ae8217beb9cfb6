package models

import "time"

// ChannelKind distinguishes chats that are scanned from chats that receive reports.
type ChannelKind string

const (
	ChannelReviewer ChannelKind = "reviewer"
	ChannelScan     ChannelKind = "scan"
)

// Channel is a chat registered for scanning or for receiving reports.
type Channel struct {
	ChatID    int64       `db:"chat_id" json:"chat_id"`
	Kind      ChannelKind `db:"kind" json:"kind"`
	Title     string      `db:"title" json:"title"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}
