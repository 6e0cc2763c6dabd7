package ingest

import (
	"context"
	"errors"

	"github.com/dmitrymomot/notifyhub/internal/domain"
)

// ErrUnknownSource is returned when no connector handles a source type.
var ErrUnknownSource = errors.New("ingest: unknown source type")

// Connector produces normalized events for one source type. Params is
// the subscription's JSON parameter blob; each connector defines its
// own schema for it.
type Connector interface {
	SourceType() string
	Poll(ctx context.Context, params string) ([]domain.Event, error)
}

// Registry resolves connectors by source type.
type Registry struct {
	connectors map[string]Connector
}

// NewRegistry indexes the given connectors. A later connector with the
// same source type replaces an earlier one.
func NewRegistry(connectors ...Connector) *Registry {
	r := &Registry{connectors: make(map[string]Connector, len(connectors))}
	for _, c := range connectors {
		r.connectors[c.SourceType()] = c
	}
	return r
}

// Get returns the connector for sourceType.
func (r *Registry) Get(sourceType string) (Connector, error) {
	c, ok := r.connectors[sourceType]
	if !ok {
		return nil, ErrUnknownSource
	}
	return c, nil
}

// SourceTypes lists the registered source types.
func (r *Registry) SourceTypes() []string {
	types := make([]string, 0, len(r.connectors))
	for t := range r.connectors {
		types = append(types, t)
	}
	return types
}
