package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"flagbot/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type FlagRepository interface {
	SaveFlagRecords(runID string, scored []models.ScoredMessage) error
	GetRecentFlagRecords(limit int) ([]models.FlagRecord, error)
}

type flagRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewFlagRepository(db *sqlx.DB, logger *zap.Logger) FlagRepository {
	return &flagRepository{db: db, logger: logger}
}

// SaveFlagRecords stores every scored message of a run in one transaction.
func (r *flagRepository) SaveFlagRecords(runID string, scored []models.ScoredMessage) error {
	if len(scored) == 0 {
		return nil
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := tx.Rebind(`INSERT INTO flag_records (run_id, chat_id, message_id, author_id, author_name, content, decision, scores, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	now := time.Now().UTC()
	for _, s := range scored {
		scores, err := json.Marshal(s.Scores)
		if err != nil {
			return fmt.Errorf("encode scores for message %d: %w", s.Message.ID, err)
		}
		if _, err := tx.Exec(query, runID, s.Message.ChatID, s.Message.ID, s.Message.Author.ID,
			s.Message.Author.Name, s.Message.Content, string(s.Decision), string(scores), now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	r.logger.Debug("Flag records saved", zap.String("run_id", runID), zap.Int("count", len(scored)))
	return nil
}

func (r *flagRepository) GetRecentFlagRecords(limit int) ([]models.FlagRecord, error) {
	records := []models.FlagRecord{}
	query := r.db.Rebind(`SELECT id, run_id, chat_id, message_id, author_id, author_name, content, decision, scores, created_at
	          FROM flag_records ORDER BY created_at DESC, id DESC LIMIT ?`)
	if err := r.db.Select(&records, query, limit); err != nil {
		return nil, err
	}
	return records, nil
}
