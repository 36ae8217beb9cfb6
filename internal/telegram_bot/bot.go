package telegram_bot

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"flagbot/internal/config"
	"flagbot/internal/message_processor"
	"flagbot/internal/models"
	"flagbot/internal/repository"
)

// ScanTrigger runs a scan on demand.
type ScanTrigger interface {
	ScanOnce(ctx context.Context) (*message_processor.Summary, error)
}

// sender is the part of the Bot API used for outgoing messages.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot records messages from watched chats, answers admin commands and
// delivers reports to reviewer chats.
type Bot struct {
	api         *tgbotapi.BotAPI
	sender      sender
	logger      *zap.Logger
	channelRepo repository.ChannelRepository
	messageRepo repository.MessageRepository
	cfg         *config.Config
	scanner     ScanTrigger

	mu      sync.RWMutex
	watched map[int64]bool
}

// NewBot creates a new Telegram bot instance. It returns nil when the bot is disabled.
func NewBot(cfg *config.Config, channelRepo repository.ChannelRepository, messageRepo repository.MessageRepository, logger *zap.Logger) (*Bot, error) {
	if !cfg.Telegram.Enabled || cfg.Telegram.BotToken == "" {
		logger.Info("Telegram bot is disabled (telegram.enabled=false or token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &Bot{
		api:         botAPI,
		sender:      botAPI,
		logger:      logger,
		channelRepo: channelRepo,
		messageRepo: messageRepo,
		cfg:         cfg,
		watched:     make(map[int64]bool),
	}, nil
}

// SetScanner wires the /scan command.
func (b *Bot) SetScanner(scanner ScanTrigger) {
	b.scanner = scanner
}

// Start begins listening for updates from Telegram
func (b *Bot) Start(ctx context.Context) error {
	if b == nil {
		return nil // Bot is disabled
	}

	if err := b.reloadWatched(); err != nil {
		return fmt.Errorf("failed to load scan channels: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Telegram bot started, waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram bot shutting down...")
			b.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			} else if update.ChannelPost != nil {
				b.record(update.ChannelPost)
			}
		}
	}
}

func (b *Bot) reloadWatched() error {
	channels, err := b.channelRepo.ListChannels(models.ChannelScan)
	if err != nil {
		return err
	}
	watched := make(map[int64]bool, len(channels))
	for _, ch := range channels {
		watched[ch.ChatID] = true
	}
	b.mu.Lock()
	b.watched = watched
	b.mu.Unlock()
	return nil
}

func (b *Bot) isWatched(chatID int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.watched[chatID]
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if !message.IsCommand() {
		b.record(message)
		return
	}

	switch message.Command() {
	case "start":
		b.handleStartCommand(message)
		return
	case "help":
		b.handleHelpCommand(message)
		return
	}

	if message.From == nil || !b.cfg.IsAdmin(message.From.ID) {
		b.sendMessage(message.Chat.ID, "⛔ This command is reserved for moderators.")
		return
	}

	switch message.Command() {
	case "scan":
		// Scans can take minutes; the update loop keeps recording meanwhile.
		go b.handleScanCommand(ctx, message)
	case "watch":
		b.registerChannel(message, models.ChannelScan, "👀 Messages in this chat will now be scanned.")
	case "unwatch":
		b.unregisterChannel(message, models.ChannelScan, "🙈 This chat is no longer scanned.")
	case "review":
		b.registerChannel(message, models.ChannelReviewer, "📋 Flagged messages will be reported here.")
	case "unreview":
		b.unregisterChannel(message, models.ChannelReviewer, "🔕 Reports will no longer be sent here.")
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help for a list of commands.")
	}
}

// record buffers a message from a watched chat for the next scan.
func (b *Bot) record(message *tgbotapi.Message) {
	if message.Chat == nil || !b.isWatched(message.Chat.ID) {
		return
	}
	raw, ok := rawFromTelegram(message)
	if !ok {
		return
	}
	if _, err := b.messageRepo.SaveMessage(raw); err != nil {
		b.logger.Error("Failed to save message", zap.Int64("chat_id", raw.ChatID), zap.Int64("message_id", raw.ID), zap.Error(err))
	}
}

// handleStartCommand handles the /start command
func (b *Bot) handleStartCommand(message *tgbotapi.Message) {
	name := ""
	if message.From != nil {
		name = message.From.FirstName
	}
	welcomeText := fmt.Sprintf(
		"👋 Hello, %s!\n\n"+
			"I scan chat messages for insults, threats, hate and NSFW content and report suspicious ones to moderators.\n"+
			"I never delete or mute anything myself.\n\n"+
			"Use /help for more information.",
		name,
	)
	b.sendMessage(message.Chat.ID, welcomeText)
}

// handleHelpCommand handles the /help command
func (b *Bot) handleHelpCommand(message *tgbotapi.Message) {
	userID := message.Chat.ID
	if message.From != nil {
		userID = message.From.ID
	}
	helpText := "📚 Help:\n\n" +
		"/start - Welcome message\n" +
		"/help - This help\n\n" +
		"Moderator commands:\n" +
		"/watch - Scan messages of this chat\n" +
		"/unwatch - Stop scanning this chat\n" +
		"/review - Send reports to this chat\n" +
		"/unreview - Stop sending reports here\n" +
		"/scan - Scan pending messages now\n\n" +
		"Your Telegram ID: " + strconv.FormatInt(userID, 10)
	b.sendMessage(message.Chat.ID, helpText)
}

func (b *Bot) handleScanCommand(ctx context.Context, message *tgbotapi.Message) {
	if b.scanner == nil {
		b.sendMessage(message.Chat.ID, "❌ Scanning is not available.")
		return
	}
	b.sendMessage(message.Chat.ID, "⏳ Scanning pending messages...")

	summary, err := b.scanner.ScanOnce(ctx)
	if err != nil {
		b.logger.Error("Manual scan failed", zap.Int64("chat_id", message.Chat.ID), zap.Error(err))
		b.sendMessage(message.Chat.ID, "❌ Scan failed, see logs for details.")
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("✅ Scanned %d messages: %d flagged, %d kept for audit.",
		summary.Scanned, summary.Flagged, summary.Audited))
}

func (b *Bot) registerChannel(message *tgbotapi.Message, kind models.ChannelKind, reply string) {
	channel := &models.Channel{ChatID: message.Chat.ID, Kind: kind, Title: chatTitle(message.Chat)}
	if err := b.channelRepo.AddChannel(channel); err != nil {
		b.logger.Error("Failed to register channel", zap.Int64("chat_id", message.Chat.ID), zap.String("kind", string(kind)), zap.Error(err))
		b.sendMessage(message.Chat.ID, "❌ Could not update the channel list.")
		return
	}
	if kind == models.ChannelScan {
		b.mu.Lock()
		b.watched[message.Chat.ID] = true
		b.mu.Unlock()
	}
	b.sendMessage(message.Chat.ID, reply)
}

func (b *Bot) unregisterChannel(message *tgbotapi.Message, kind models.ChannelKind, reply string) {
	removed, err := b.channelRepo.RemoveChannel(message.Chat.ID, kind)
	if err != nil {
		b.logger.Error("Failed to unregister channel", zap.Int64("chat_id", message.Chat.ID), zap.String("kind", string(kind)), zap.Error(err))
		b.sendMessage(message.Chat.ID, "❌ Could not update the channel list.")
		return
	}
	if kind == models.ChannelScan {
		b.mu.Lock()
		delete(b.watched, message.Chat.ID)
		b.mu.Unlock()
	}
	if !removed {
		b.sendMessage(message.Chat.ID, "ℹ️ This chat was not registered.")
		return
	}
	b.sendMessage(message.Chat.ID, reply)
}

// SendReport posts a flagged-message report to a reviewer chat.
func (b *Bot) SendReport(chatID int64, entry models.ReportEntry) error {
	if b == nil {
		return fmt.Errorf("bot is disabled")
	}

	msg := tgbotapi.NewMessage(chatID, renderReport(entry))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if entry.Permalink != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("Jump to message", entry.Permalink),
			),
		)
	}

	if _, err := b.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send report: %w", err)
	}

	b.logger.Info("Report sent",
		zap.Int64("reviewer_chat_id", chatID),
		zap.Int64("message_id", entry.MessageID),
	)
	return nil
}

// sendMessage is a helper to send a simple text message
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
