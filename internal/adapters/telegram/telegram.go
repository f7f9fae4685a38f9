// Package telegram delivers notifications to a Telegram chat through the Bot
// API. It only sends; no updates are polled.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	logx "boomyouup/pkg/logx"

	tele "gopkg.in/telebot.v4"
)

type Config struct {
	Token    string
	ChatID   int64
	ThreadID int

	// URL overrides the Bot API endpoint.
	URL string
}

type Notifier struct {
	log  logx.Logger
	bot  *tele.Bot
	chat *tele.Chat
	opts *tele.SendOptions
}

func New(cfg Config, log logx.Logger) (*Notifier, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     cfg.URL,
		Offline: true,
		Client:  &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &Notifier{
		log:  log.With(logx.String("comp", "telegram")),
		bot:  b,
		chat: &tele.Chat{ID: cfg.ChatID},
		opts: &tele.SendOptions{
			ParseMode:             tele.ModeHTML,
			DisableWebPagePreview: true,
			ThreadID:              cfg.ThreadID,
		},
	}, nil
}

// Notify sends "<b>summary</b>\nbody" to the configured chat.
func (n *Notifier) Notify(ctx context.Context, appName, summary, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := n.bot.Send(n.chat, Format(appName, summary, body), n.opts)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	n.log.Debug("notification sent", logx.Int("message_id", msg.ID))
	return nil
}

// Format renders a notification as Telegram HTML.
func Format(appName, summary, body string) string {
	var sb strings.Builder
	sb.WriteString("<b>")
	sb.WriteString(html.EscapeString(summary))
	sb.WriteString("</b>")
	if appName != "" {
		sb.WriteString(" <i>")
		sb.WriteString(html.EscapeString(appName))
		sb.WriteString("</i>")
	}
	if body != "" {
		sb.WriteString("\n")
		sb.WriteString(html.EscapeString(body))
	}
	return sb.String()
}
