package alert

import (
	"context"
	"fmt"
	"html"

	"github.com/deusflow/newsrisk/internal/telegram"
)

// TelegramChannel posts alerts to a Telegram chat through the bot API.
type TelegramChannel struct {
	client *telegram.Client
	chatID string
}

// NewTelegramChannel returns a nil Channel unless both client and chatID are set.
func NewTelegramChannel(client *telegram.Client, chatID string) Channel {
	if client == nil || chatID == "" {
		return nil
	}
	return &TelegramChannel{client: client, chatID: chatID}
}

func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) Send(ctx context.Context, n Notification) error {
	return t.client.SendMessage(ctx, t.chatID, FormatTelegram(n))
}

// FormatTelegram renders the alert as Telegram HTML.
func FormatTelegram(n Notification) string {
	return fmt.Sprintf("🚨 <b>Risk %d</b> | %s\n<a href=\"%s\">%s</a>\n<i>%s</i>",
		n.RiskPoint,
		html.EscapeString(n.Category),
		html.EscapeString(n.Source),
		html.EscapeString(n.Title),
		html.EscapeString(n.Rules),
	)
}
