package logger

import (
	"log/slog"

	"github.com/google/uuid"
)

// Component tags a log record with the subsystem that produced it.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Error renders an error value consistently across the codebase.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// UserID tags a record with the acting user.
func UserID(id uuid.UUID) slog.Attr {
	return slog.String("user_id", id.String())
}

// NotificationID tags a record with a notification identity.
func NotificationID(id uuid.UUID) slog.Attr {
	return slog.String("notification_id", id.String())
}
