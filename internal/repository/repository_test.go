package repository

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"flagbot/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := NewDB(DriverSQLite, filepath.Join(t.TempDir(), "flagbot.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, MigrateDB(db, zap.NewNop()))
	return db
}

func testMessage(chatID, id int64, content string) models.RawMessage {
	return models.RawMessage{
		ID:        id,
		ChatID:    chatID,
		Content:   content,
		Author:    models.Author{ID: 7, Name: "alice"},
		Location:  models.Location{Server: "guild", Channel: "general"},
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Permalink: "https://t.me/c/1/1",
	}
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	_, err := NewDB("mysql", "whatever", zap.NewNop())
	assert.Error(t, err)
}

func TestMigrateDB_Idempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, MigrateDB(db, zap.NewNop()))
}

func TestChannelRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewChannelRepository(db, zap.NewNop())

	require.NoError(t, repo.AddChannel(&models.Channel{ChatID: -100, Kind: models.ChannelScan, Title: "general"}))
	require.NoError(t, repo.AddChannel(&models.Channel{ChatID: -200, Kind: models.ChannelReviewer, Title: "mods"}))
	require.NoError(t, repo.AddChannel(&models.Channel{ChatID: -100, Kind: models.ChannelScan, Title: "renamed"}))

	scan, err := repo.ListChannels(models.ChannelScan)
	require.NoError(t, err)
	require.Len(t, scan, 1)
	assert.Equal(t, int64(-100), scan[0].ChatID)
	assert.Equal(t, "renamed", scan[0].Title)

	reviewers, err := repo.ListChannels(models.ChannelReviewer)
	require.NoError(t, err)
	require.Len(t, reviewers, 1)
	assert.Equal(t, int64(-200), reviewers[0].ChatID)

	removed, err := repo.RemoveChannel(-100, models.ChannelScan)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemoveChannel(-100, models.ChannelScan)
	require.NoError(t, err)
	assert.False(t, removed)

	scan, err = repo.ListChannels(models.ChannelScan)
	require.NoError(t, err)
	assert.Empty(t, scan)
}

func TestMessageRepository_PendingAndScanned(t *testing.T) {
	db := newTestDB(t)
	channels := NewChannelRepository(db, zap.NewNop())
	repo := NewMessageRepository(db, zap.NewNop())

	require.NoError(t, channels.AddChannel(&models.Channel{ChatID: 1, Kind: models.ChannelScan}))

	inserted, err := repo.SaveMessage(testMessage(1, 10, "first message"))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.SaveMessage(testMessage(1, 10, "first message"))
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate message must be ignored")

	_, err = repo.SaveMessage(testMessage(1, 11, "second message"))
	require.NoError(t, err)
	_, err = repo.SaveMessage(testMessage(2, 12, "unwatched chat"))
	require.NoError(t, err)

	pending, err := repo.GetPendingMessages(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(10), pending[0].MessageID)
	assert.Equal(t, int64(11), pending[1].MessageID)
	assert.Nil(t, pending[0].ScannedAt)

	raw := pending[0].Raw()
	assert.Equal(t, "first message", raw.Content)
	assert.Equal(t, "alice", raw.Author.Name)
	assert.Equal(t, "general", raw.Location.Channel)
	assert.WithinDuration(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), raw.Timestamp, time.Second)

	limited, err := repo.GetPendingMessages(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, repo.MarkScanned([]int64{pending[0].RowID}))
	pending, err = repo.GetPendingMessages(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(11), pending[0].MessageID)

	assert.NoError(t, repo.MarkScanned(nil))
}

func TestFlagRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewFlagRepository(db, zap.NewNop())

	scored := []models.ScoredMessage{
		{
			Message:  testMessage(1, 10, "you are an idiot"),
			Cleaned:  "you are an idiot",
			Scores:   models.ScoreVector{{Label: models.LabelInsult, Score: 0.9}},
			Decision: models.DecisionFlagged,
		},
		{
			Message:  testMessage(1, 11, "nice weather today"),
			Cleaned:  "nice weather today",
			Scores:   models.ScoreVector{{Label: models.LabelInsult, Score: 0.1}},
			Decision: models.DecisionSampledClean,
		},
	}
	require.NoError(t, repo.SaveFlagRecords("run-1", scored))
	require.NoError(t, repo.SaveFlagRecords("run-2", nil))

	records, err := repo.GetRecentFlagRecords(10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// same timestamp, newest row id first
	assert.Equal(t, int64(11), records[0].MessageID)
	assert.Equal(t, "sampled-clean", records[0].Decision)
	assert.Equal(t, "run-1", records[1].RunID)
	assert.Equal(t, "flagged", records[1].Decision)

	var decoded models.ScoreVector
	require.NoError(t, json.Unmarshal([]byte(records[1].Scores), &decoded))
	score, ok := decoded.Get(models.LabelInsult)
	require.True(t, ok)
	assert.InDelta(t, 0.9, score, 1e-9)

	limited, err := repo.GetRecentFlagRecords(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
