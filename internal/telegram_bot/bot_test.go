package telegram_bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flagbot/internal/config"
	"flagbot/internal/message_processor"
	"flagbot/internal/models"
	"flagbot/internal/repository"
)

const (
	adminID    = int64(42)
	strangerID = int64(99)
	groupID    = int64(-1001234)
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, msg := range f.sent {
		out = append(out, msg.Text)
	}
	return out
}

func (f *fakeSender) last() string {
	texts := f.texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type slowScanner struct {
	started chan struct{}
	release chan struct{}
}

func (s *slowScanner) ScanOnce(ctx context.Context) (*message_processor.Summary, error) {
	close(s.started)
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &message_processor.Summary{Scanned: 3, Flagged: 1}, nil
}

type botFixture struct {
	bot      *Bot
	sender   *fakeSender
	channels repository.ChannelRepository
	messages repository.MessageRepository
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	logger := zap.NewNop()
	db, err := repository.NewDB(repository.DriverSQLite, filepath.Join(t.TempDir(), "bot.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.MigrateDB(db, logger))

	cfg := &config.Config{}
	cfg.Telegram.AdminUsers = []int64{adminID}

	f := &botFixture{
		sender:   &fakeSender{},
		channels: repository.NewChannelRepository(db, logger),
		messages: repository.NewMessageRepository(db, logger),
	}
	f.bot = &Bot{
		sender:      f.sender,
		logger:      logger,
		channelRepo: f.channels,
		messageRepo: f.messages,
		cfg:         cfg,
		watched:     make(map[int64]bool),
	}
	return f
}

func command(from int64, name string) *tgbotapi.Message {
	text := "/" + name
	return &tgbotapi.Message{
		MessageID: 1,
		Date:      int(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).Unix()),
		Chat:      &tgbotapi.Chat{ID: groupID, Title: "Gamers", Type: "supergroup"},
		From:      &tgbotapi.User{ID: from, FirstName: "Bob"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func chatMessage(chatID int64, id int, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: id,
		Date:      int(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).Unix()),
		Chat:      &tgbotapi.Chat{ID: chatID, Title: "Gamers", Type: "supergroup"},
		From:      &tgbotapi.User{ID: strangerID, FirstName: "Eve"},
		Text:      text,
	}
}

func pendingIDs(t *testing.T, repo repository.MessageRepository) []int64 {
	t.Helper()
	pending, err := repo.GetPendingMessages(100)
	require.NoError(t, err)
	ids := make([]int64, 0, len(pending))
	for _, m := range pending {
		ids = append(ids, m.MessageID)
	}
	return ids
}

func TestHandleMessage_AdminCommandsRejectStrangers(t *testing.T) {
	for _, name := range []string{"scan", "watch", "unwatch", "review", "unreview"} {
		t.Run(name, func(t *testing.T) {
			f := newBotFixture(t)
			f.bot.handleMessage(context.Background(), command(strangerID, name))

			assert.Equal(t, []string{"⛔ This command is reserved for moderators."}, f.sender.texts())
			channels, err := f.channels.ListChannels(models.ChannelScan)
			require.NoError(t, err)
			assert.Empty(t, channels)
			assert.False(t, f.bot.isWatched(groupID))
		})
	}
}

func TestHandleMessage_StartAndHelpOpenToEveryone(t *testing.T) {
	f := newBotFixture(t)

	f.bot.handleMessage(context.Background(), command(strangerID, "start"))
	assert.Contains(t, f.sender.last(), "Hello, Bob!")

	f.bot.handleMessage(context.Background(), command(strangerID, "help"))
	assert.Contains(t, f.sender.last(), "Your Telegram ID: 99")

	for _, text := range f.sender.texts() {
		assert.NotContains(t, text, "reserved for moderators")
	}
}

func TestHandleMessage_UnknownCommand(t *testing.T) {
	f := newBotFixture(t)
	f.bot.handleMessage(context.Background(), command(adminID, "ban"))
	assert.Equal(t, "Unknown command. Use /help for a list of commands.", f.sender.last())
}

func TestHandleMessage_WatchControlsRecording(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.handleMessage(ctx, chatMessage(groupID, 10, "before watch"))
	assert.Empty(t, pendingIDs(t, f.messages))

	f.bot.handleMessage(ctx, command(adminID, "watch"))
	assert.Equal(t, "👀 Messages in this chat will now be scanned.", f.sender.last())
	assert.True(t, f.bot.isWatched(groupID))
	channels, err := f.channels.ListChannels(models.ChannelScan)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "Gamers", channels[0].Title)

	f.bot.handleMessage(ctx, chatMessage(groupID, 11, "after watch"))
	f.bot.record(chatMessage(-100777, 12, "other chat"))
	assert.Equal(t, []int64{11}, pendingIDs(t, f.messages))

	f.bot.handleMessage(ctx, command(adminID, "unwatch"))
	assert.Equal(t, "🙈 This chat is no longer scanned.", f.sender.last())
	assert.False(t, f.bot.isWatched(groupID))

	f.bot.handleMessage(ctx, chatMessage(groupID, 13, "after unwatch"))
	channels, err = f.channels.ListChannels(models.ChannelScan)
	require.NoError(t, err)
	assert.Empty(t, channels)

	f.bot.handleMessage(ctx, command(adminID, "unwatch"))
	assert.Equal(t, "ℹ️ This chat was not registered.", f.sender.last())
}

func TestHandleMessage_ReviewRegistersReviewerChat(t *testing.T) {
	f := newBotFixture(t)
	ctx := context.Background()

	f.bot.handleMessage(ctx, command(adminID, "review"))
	reviewers, err := f.channels.ListChannels(models.ChannelReviewer)
	require.NoError(t, err)
	require.Len(t, reviewers, 1)
	assert.Equal(t, groupID, reviewers[0].ChatID)
	assert.False(t, f.bot.isWatched(groupID))

	f.bot.handleMessage(ctx, command(adminID, "unreview"))
	reviewers, err = f.channels.ListChannels(models.ChannelReviewer)
	require.NoError(t, err)
	assert.Empty(t, reviewers)
}

func TestReloadWatched(t *testing.T) {
	f := newBotFixture(t)
	require.NoError(t, f.channels.AddChannel(&models.Channel{ChatID: groupID, Kind: models.ChannelScan, Title: "Gamers"}))
	require.NoError(t, f.channels.AddChannel(&models.Channel{ChatID: -100555, Kind: models.ChannelReviewer, Title: "Mods"}))

	require.NoError(t, f.bot.reloadWatched())
	assert.True(t, f.bot.isWatched(groupID))
	assert.False(t, f.bot.isWatched(-100555))
}

func TestHandleMessage_ScanDoesNotBlockRecording(t *testing.T) {
	f := newBotFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scanner := &slowScanner{started: make(chan struct{}), release: make(chan struct{})}
	f.bot.SetScanner(scanner)
	f.bot.handleMessage(ctx, command(adminID, "watch"))

	done := make(chan struct{})
	go func() {
		f.bot.handleMessage(ctx, command(adminID, "scan"))
		f.bot.handleMessage(ctx, chatMessage(groupID, 20, "recorded during a scan"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("update handling blocked while a scan was running")
	}

	<-scanner.started
	assert.Equal(t, []int64{20}, pendingIDs(t, f.messages))

	close(scanner.release)
	assert.Eventually(t, func() bool {
		return strings.HasPrefix(f.sender.last(), "✅ Scanned 3 messages: 1 flagged")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandleMessage_ScanWithoutScanner(t *testing.T) {
	f := newBotFixture(t)
	f.bot.handleMessage(context.Background(), command(adminID, "scan"))
	assert.Eventually(t, func() bool {
		return f.sender.last() == "❌ Scanning is not available."
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSendReport(t *testing.T) {
	f := newBotFixture(t)
	entry := models.ReportEntry{
		Title:     "New Flagged Message!",
		MessageID: 7,
		Permalink: "https://t.me/c/1234/7",
	}

	require.NoError(t, f.bot.SendReport(-100555, entry))

	f.sender.mu.Lock()
	defer f.sender.mu.Unlock()
	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, int64(-100555), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.NotNil(t, markup.InlineKeyboard[0][0].URL)
	assert.Equal(t, "https://t.me/c/1234/7", *markup.InlineKeyboard[0][0].URL)
}
