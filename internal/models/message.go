package models

import "time"

// Author identifies who sent a chat message.
type Author struct {
	ID   int64  `json:"id" db:"author_id"`
	Name string `json:"name" db:"author_name"`
}

// Location is where a message was posted: a server (or group) and a channel within it.
type Location struct {
	Server  string `json:"server" db:"server"`
	Channel string `json:"channel" db:"channel"`
}

// RawMessage is a chat message as delivered by a connector. It is never modified.
type RawMessage struct {
	ID        int64     `json:"id" db:"message_id"`
	ChatID    int64     `json:"chat_id" db:"chat_id"`
	Content   string    `json:"content" db:"content"`
	Author    Author    `json:"author"`
	Location  Location  `json:"location"`
	Timestamp time.Time `json:"timestamp" db:"sent_at"`
	Permalink string    `json:"permalink" db:"permalink"`
}

// StoredMessage is a RawMessage buffered in the database until it is scanned.
type StoredMessage struct {
	RowID      int64      `db:"id"`
	ChatID     int64      `db:"chat_id"`
	MessageID  int64      `db:"message_id"`
	Server     string     `db:"server"`
	Channel    string     `db:"channel"`
	AuthorID   int64      `db:"author_id"`
	AuthorName string     `db:"author_name"`
	Content    string     `db:"content"`
	Permalink  string     `db:"permalink"`
	SentAt     time.Time  `db:"sent_at"`
	ScannedAt  *time.Time `db:"scanned_at"`
}

// Raw converts the stored row back into the connector's message shape.
func (m *StoredMessage) Raw() RawMessage {
	return RawMessage{
		ID:        m.MessageID,
		ChatID:    m.ChatID,
		Content:   m.Content,
		Author:    Author{ID: m.AuthorID, Name: m.AuthorName},
		Location:  Location{Server: m.Server, Channel: m.Channel},
		Timestamp: m.SentAt,
		Permalink: m.Permalink,
	}
}
