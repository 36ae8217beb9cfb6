package repository

import (
	"time"

	"flagbot/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type ChannelRepository interface {
	ListChannels(kind models.ChannelKind) ([]models.Channel, error)
	AddChannel(channel *models.Channel) error
	RemoveChannel(chatID int64, kind models.ChannelKind) (bool, error)
}

type channelRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewChannelRepository(db *sqlx.DB, logger *zap.Logger) ChannelRepository {
	return &channelRepository{db: db, logger: logger}
}

func (r *channelRepository) ListChannels(kind models.ChannelKind) ([]models.Channel, error) {
	channels := []models.Channel{}
	query := r.db.Rebind(`SELECT chat_id, kind, title, created_at FROM channels WHERE kind = ? ORDER BY created_at, chat_id`)
	if err := r.db.Select(&channels, query, kind); err != nil {
		return nil, err
	}
	return channels, nil
}

// AddChannel registers a chat. Registering it again only refreshes its title.
func (r *channelRepository) AddChannel(channel *models.Channel) error {
	if channel.CreatedAt.IsZero() {
		channel.CreatedAt = time.Now().UTC()
	}
	query := r.db.Rebind(`INSERT INTO channels (chat_id, kind, title, created_at) VALUES (?, ?, ?, ?)
	          ON CONFLICT (chat_id, kind) DO UPDATE SET title = excluded.title`)
	_, err := r.db.Exec(query, channel.ChatID, channel.Kind, channel.Title, channel.CreatedAt)
	if err != nil {
		return err
	}
	r.logger.Info("Channel registered", zap.Int64("chat_id", channel.ChatID), zap.String("kind", string(channel.Kind)))
	return nil
}

func (r *channelRepository) RemoveChannel(chatID int64, kind models.ChannelKind) (bool, error) {
	query := r.db.Rebind(`DELETE FROM channels WHERE chat_id = ? AND kind = ?`)
	res, err := r.db.Exec(query, chatID, kind)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
