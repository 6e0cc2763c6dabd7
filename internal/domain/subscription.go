package domain

import (
	"time"

	"github.com/google/uuid"
)

// Subscription binds a user to an event source. Params is a free-form
// JSON blob interpreted by the connector for the given source type.
type Subscription struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	SourceType string    `json:"source_type"`
	Params     string    `json:"params,omitempty"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
}

// GroupKey returns the polling group identity: subscriptions sharing the
// same source type and params trigger a single upstream call per cycle.
func (s Subscription) GroupKey() string {
	return s.SourceType + "::" + s.Params
}
