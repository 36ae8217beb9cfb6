package repository

import (
	"time"

	"flagbot/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type MessageRepository interface {
	SaveMessage(msg models.RawMessage) (bool, error)
	GetPendingMessages(limit int) ([]models.StoredMessage, error)
	MarkScanned(ids []int64) error
}

type messageRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewMessageRepository(db *sqlx.DB, logger *zap.Logger) MessageRepository {
	return &messageRepository{db: db, logger: logger}
}

// SaveMessage buffers a message for the next scan. It reports false when the
// message was already stored.
func (r *messageRepository) SaveMessage(msg models.RawMessage) (bool, error) {
	sentAt := msg.Timestamp
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	query := r.db.Rebind(`INSERT INTO messages (chat_id, message_id, server, channel, author_id, author_name, content, permalink, sent_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT (chat_id, message_id) DO NOTHING`)
	res, err := r.db.Exec(query, msg.ChatID, msg.ID, msg.Location.Server, msg.Location.Channel,
		msg.Author.ID, msg.Author.Name, msg.Content, msg.Permalink, sentAt.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetPendingMessages returns unscanned messages from chats that are registered
// for scanning, oldest first.
func (r *messageRepository) GetPendingMessages(limit int) ([]models.StoredMessage, error) {
	messages := []models.StoredMessage{}
	query := r.db.Rebind(`SELECT m.id, m.chat_id, m.message_id, m.server, m.channel, m.author_id, m.author_name,
	                 m.content, m.permalink, m.sent_at, m.scanned_at
	          FROM messages m
	          WHERE m.scanned_at IS NULL
	            AND m.chat_id IN (SELECT chat_id FROM channels WHERE kind = ?)
	          ORDER BY m.id
	          LIMIT ?`)
	if err := r.db.Select(&messages, query, models.ChannelScan, limit); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) MarkScanned(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE messages SET scanned_at = ? WHERE id IN (?)`, time.Now().UTC(), ids)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(r.db.Rebind(query), args...)
	return err
}
