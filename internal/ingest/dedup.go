package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifyhub/internal/domain"
	"github.com/dmitrymomot/notifyhub/internal/store"
)

// Deduper persists events exactly once per external id. Events without
// an external id are always treated as new.
type Deduper struct {
	events store.EventStore
	log    *slog.Logger
}

// NewDeduper creates a deduper on top of the event store.
func NewDeduper(events store.EventStore, log *slog.Logger) *Deduper {
	return &Deduper{events: events, log: log}
}

// Persist saves the event unless its external id has been seen before.
// It returns the stored event and whether it was fresh.
func (d *Deduper) Persist(ctx context.Context, event domain.Event) (domain.Event, bool, error) {
	if event.ExternalID == "" {
		if err := d.events.CreateEvent(ctx, &event); err != nil {
			return domain.Event{}, false, fmt.Errorf("save event: %w", err)
		}
		return event, true, nil
	}

	exists, err := d.events.EventExistsByExternalID(ctx, event.ExternalID)
	if err != nil {
		return domain.Event{}, false, fmt.Errorf("dedup lookup: %w", err)
	}
	if exists {
		d.log.DebugContext(ctx, "event already seen", "external_id", event.ExternalID)
		return domain.Event{}, false, nil
	}

	if err := d.events.CreateEvent(ctx, &event); err != nil {
		// Concurrent cycles can race on the same external id; the
		// unique index turns the loser into a duplicate.
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Event{}, false, nil
		}
		return domain.Event{}, false, fmt.Errorf("save event: %w", err)
	}
	return event, true, nil
}
