package notify

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/internal/domain"
)

// BroadcastMessage is the live-stream view of a notification, enriched
// with the event fields a client needs to render it without another
// round trip.
type BroadcastMessage struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	EventID         uuid.UUID       `json:"event_id"`
	Channel         domain.Channel  `json:"channel"`
	Status          domain.Status   `json:"status"`
	Attempts        int             `json:"attempts"`
	LastError       string          `json:"last_error,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	EventTitle      string          `json:"event_title,omitempty"`
	EventSourceType string          `json:"event_source_type,omitempty"`
	EventPriority   domain.Priority `json:"event_priority,omitempty"`
	EventPayload    string          `json:"event_payload,omitempty"`
}

// NewBroadcastMessage joins a notification with its event.
func NewBroadcastMessage(notif domain.Notification, event domain.Event) BroadcastMessage {
	return BroadcastMessage{
		ID:              notif.ID,
		UserID:          notif.UserID,
		EventID:         notif.EventID,
		Channel:         notif.Channel,
		Status:          notif.Status,
		Attempts:        notif.Attempts,
		LastError:       notif.LastError,
		CreatedAt:       notif.CreatedAt,
		EventTitle:      event.Title,
		EventSourceType: event.SourceType,
		EventPriority:   event.Priority,
		EventPayload:    event.Payload,
	}
}
