package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifyhub/internal/domain"
	"github.com/dmitrymomot/notifyhub/pkg/mailer"
	"github.com/dmitrymomot/notifyhub/pkg/workerpool"
)

// EmailConfig controls the email sender.
type EmailConfig struct {
	Enabled bool `env:"MAIL_ENABLED" envDefault:"false"`
}

// Email sends events as plain-text mail. The mailer call runs on the
// shared blocking pool.
type Email struct {
	cfg    EmailConfig
	sender mailer.Sender
	pool   *workerpool.Pool
	log    *slog.Logger
}

// NewEmail creates the email sender.
func NewEmail(cfg EmailConfig, sender mailer.Sender, pool *workerpool.Pool, log *slog.Logger) *Email {
	return &Email{cfg: cfg, sender: sender, pool: pool, log: log}
}

func (e *Email) Channel() domain.Channel { return domain.ChannelEmail }

func (e *Email) Send(ctx context.Context, user domain.User, event domain.Event) error {
	if !e.cfg.Enabled {
		return ErrSkipped
	}
	if user.Email == "" {
		e.log.WarnContext(ctx, "user has no email", "username", user.Username)
		return ErrSkipped
	}

	payload := event.Payload
	if payload == "" {
		payload = "N/A"
	}
	msg := mailer.Message{
		To:      user.Email,
		Subject: "[NotifyHub] " + event.Title,
		Body: fmt.Sprintf("Event: %s\nSource: %s\nPriority: %s\n\nDetails:\n%s",
			event.Title, event.SourceType, event.Priority, payload),
		Tag: "notification",
	}

	err := e.pool.Do(ctx, func() error {
		return e.sender.Send(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	e.log.InfoContext(ctx, "email sent", "to", user.Email)
	return nil
}
