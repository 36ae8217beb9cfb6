package telegram_bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"flagbot/internal/models"
)

// renderReport formats a report as Telegram HTML.
func renderReport(entry models.ReportEntry) string {
	var sb strings.Builder
	sb.WriteString("🚩 <b>" + html.EscapeString(entry.Title) + "</b>\n\n")
	sb.WriteString(html.EscapeString(entry.Description) + "\n\n")
	if entry.Origin != "" {
		sb.WriteString("📍 " + html.EscapeString(entry.Origin) + "\n")
	}
	sb.WriteString("👤 " + html.EscapeString(entry.AuthorLine) + "\n")

	items := make([]string, len(entry.Scores))
	for i, f := range entry.Scores {
		percent := strconv.Itoa(f.Percent) + "%"
		if f.Bold {
			percent = "<b>" + percent + "</b>"
		}
		items[i] = html.EscapeString(f.Emoji) + " " + percent
	}
	sb.WriteString("📊 " + strings.Join(items, " "))
	return sb.String()
}

// rawFromTelegram converts an incoming Telegram message. Messages without text are skipped.
func rawFromTelegram(message *tgbotapi.Message) (models.RawMessage, bool) {
	content := message.Text
	if content == "" {
		content = message.Caption
	}
	if content == "" || message.Chat == nil {
		return models.RawMessage{}, false
	}

	raw := models.RawMessage{
		ID:      int64(message.MessageID),
		ChatID:  message.Chat.ID,
		Content: content,
		Location: models.Location{
			Server:  chatTitle(message.Chat),
			Channel: chatHandle(message.Chat),
		},
		Timestamp: message.Time(),
		Permalink: permalink(message.Chat, message.MessageID),
	}
	if raw.Timestamp.Unix() == 0 {
		raw.Timestamp = time.Now()
	}

	switch {
	case message.From != nil:
		raw.Author = models.Author{ID: message.From.ID, Name: userName(message.From)}
	case message.SenderChat != nil:
		raw.Author = models.Author{ID: message.SenderChat.ID, Name: chatTitle(message.SenderChat)}
	}
	return raw, true
}

// permalink builds a t.me link. Private supergroups use the /c/ form with the
// -100 prefix stripped; basic groups and private chats have no public link.
func permalink(chat *tgbotapi.Chat, messageID int) string {
	if chat.UserName != "" {
		return fmt.Sprintf("https://t.me/%s/%d", chat.UserName, messageID)
	}
	id := strconv.FormatInt(chat.ID, 10)
	if strings.HasPrefix(id, "-100") {
		return fmt.Sprintf("https://t.me/c/%s/%d", strings.TrimPrefix(id, "-100"), messageID)
	}
	return ""
}

func chatTitle(chat *tgbotapi.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	if chat.UserName != "" {
		return chat.UserName
	}
	return strings.TrimSpace(chat.FirstName + " " + chat.LastName)
}

func chatHandle(chat *tgbotapi.Chat) string {
	if chat.UserName != "" {
		return chat.UserName
	}
	return strconv.FormatInt(chat.ID, 10)
}

func userName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return user.UserName
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}
