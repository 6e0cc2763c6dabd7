package domain

import (
	"time"

	"github.com/google/uuid"
)

// Channel identifies how a notification reaches the user.
type Channel string

const (
	ChannelUI       Channel = "UI"
	ChannelTelegram Channel = "TELEGRAM"
	ChannelEmail    Channel = "EMAIL"
)

// Status is the delivery state of a notification. Transitions are
// monotonic: CREATED and QUEUED may advance, SENT and FAILED are terminal.
type Status string

const (
	StatusCreated Status = "CREATED"
	StatusQueued  Status = "QUEUED"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// CanTransition reports whether the move from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusQueued:
		return s == StatusCreated || s == StatusQueued
	case StatusSent, StatusFailed:
		return true
	default:
		return false
	}
}

// Notification is one delivery of an event to a user over a single
// channel. Created once per (event, channel) by the fan-out stage and
// mutated only through status transitions during delivery.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	EventID   uuid.UUID `json:"event_id"`
	Channel   Channel   `json:"channel"`
	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
