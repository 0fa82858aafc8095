package notify

import (
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

// Telegram sends run summaries to a chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("Notifying as @%s", api.Self.UserName)
	return &Telegram{api: api, chatID: chatID}, nil
}

func (t *Telegram) NotifyReport(r *domain.RunReport) error {
	msg := tgbotapi.NewMessage(t.chatID, formatReport(r))
	msg.ParseMode = "HTML"
	_, err := t.api.Send(msg)
	return err
}

func formatReport(r *domain.RunReport) string {
	icon := "✅"
	switch r.Status {
	case domain.RunStatusPartial:
		icon = "⚠️"
	case domain.RunStatusFailed:
		icon = "❌"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>Calendar sync: %s</b>\n\n", icon, r.Status)
	fmt.Fprintf(&b, "Calendars: %d, events: %d\n", r.CalendarsScanned, r.EventsSeen)
	fmt.Fprintf(&b, "Added %d, updated %d, deleted %d, skipped %d\n", r.Added, r.Updated, r.Deleted, r.Skipped)
	fmt.Fprintf(&b, "Took %s", r.Duration().Round(time.Second))

	if len(r.Errors) > 0 {
		fmt.Fprintf(&b, "\n\n<b>Errors (%d):</b>\n", len(r.Errors))
		shown := r.Errors
		if len(shown) > 5 {
			shown = shown[:5]
		}
		for _, e := range shown {
			fmt.Fprintf(&b, "• %s\n", html.EscapeString(e))
		}
		if len(r.Errors) > len(shown) {
			fmt.Fprintf(&b, "… and %d more", len(r.Errors)-len(shown))
		}
	}
	return b.String()
}
