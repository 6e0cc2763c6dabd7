package domain

import (
	"time"

	"github.com/google/uuid"
)

// Priority represents the urgency attached to an event or notification.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Event is a normalized item produced by a source connector.
// Events are immutable after creation; the pipeline builds a
// priority-enriched copy for delivery but never writes the resolved
// priority back to the persisted record.
type Event struct {
	ID         uuid.UUID `json:"id"`
	SourceType string    `json:"source_type"`
	// ExternalID identifies the upstream item for deduplication.
	// An empty value means the event is always treated as new.
	ExternalID string    `json:"external_id,omitempty"`
	Title      string    `json:"title"`
	Payload    string    `json:"payload,omitempty"`
	Priority   Priority  `json:"priority"`
	CreatedAt  time.Time `json:"created_at"`
}

// WithPriority returns a copy of the event carrying the rule-resolved
// priority. The receiver is left untouched.
func (e Event) WithPriority(p Priority) Event {
	e.Priority = p
	return e
}
