package mailer

import (
	"context"
	"log/slog"
)

// DevSender logs messages instead of sending them. Used in local
// development and as the fallback when Postmark is not configured.
type DevSender struct {
	logger *slog.Logger
}

// NewDevSender creates a log-only sender.
func NewDevSender(logger *slog.Logger) *DevSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &DevSender{logger: logger}
}

func (d *DevSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	d.logger.InfoContext(ctx, "dev mailer: email not sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("body_length", len(msg.Body)))
	return nil
}
