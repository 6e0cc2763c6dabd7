package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/notifyhub/internal/domain"
)

// telegramPayloadLimit caps how much of the event payload makes it
// into the message body.
const telegramPayloadLimit = 500

// TelegramConfig controls the Telegram sender.
type TelegramConfig struct {
	Enabled  bool          `env:"TELEGRAM_ENABLED" envDefault:"false"`
	BotToken string        `env:"TELEGRAM_BOT_TOKEN"`
	BaseURL  string        `env:"TELEGRAM_API_BASE_URL" envDefault:"https://api.telegram.org"`
	Timeout  time.Duration `env:"TELEGRAM_API_TIMEOUT" envDefault:"10s"`
}

// Telegram sends events to a user's chat via the Bot API.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
	log    *slog.Logger
}

// NewTelegram creates the Telegram sender.
func NewTelegram(cfg TelegramConfig, log *slog.Logger) *Telegram {
	return &Telegram{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

func (t *Telegram) Channel() domain.Channel { return domain.ChannelTelegram }

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (t *Telegram) Send(ctx context.Context, user domain.User, event domain.Event) error {
	if !t.cfg.Enabled {
		return ErrSkipped
	}
	if user.TelegramChatID == "" {
		t.log.WarnContext(ctx, "user has no telegram chat id", "username", user.Username)
		return ErrSkipped
	}

	body, err := json.Marshal(telegramMessage{
		ChatID:    user.TelegramChatID,
		Text:      formatTelegramMessage(event),
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.BaseURL, t.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("telegram responded %d: %s", resp.StatusCode, snippet)
	}

	t.log.InfoContext(ctx, "telegram message sent", "username", user.Username)
	return nil
}

func formatTelegramMessage(event domain.Event) string {
	return fmt.Sprintf("<b>%s</b> [%s]\n\n%s\n\n<i>Source: %s | Priority: %s</i>",
		escapeHTML(event.Title),
		event.Priority,
		truncate(event.Payload, telegramPayloadLimit),
		event.SourceType,
		event.Priority)
}

func escapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	return strings.ReplaceAll(text, ">", "&gt;")
}

func truncate(text string, max int) string {
	if len(text) > max {
		return text[:max] + "..."
	}
	return text
}
