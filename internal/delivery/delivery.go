package delivery

import (
	"context"
	"errors"

	"github.com/dmitrymomot/notifyhub/internal/domain"
)

// ErrSkipped marks a delivery that cannot proceed for configuration
// reasons: the channel is disabled or the user has no address for it.
// Skipped deliveries are not failures and are never retried.
var ErrSkipped = errors.New("delivery: skipped")

// Sender pushes an event to one user over a single external channel.
type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, user domain.User, event domain.Event) error
}
