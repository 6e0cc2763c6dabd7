package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/internal/domain"
)

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrAlreadyExists is returned on uniqueness violations.
	ErrAlreadyExists = errors.New("store: already exists")
	// ErrInvalidTransition is returned when a notification status update
	// would leave a terminal state or skip the allowed ordering.
	ErrInvalidTransition = errors.New("store: invalid status transition")
)

// EventStore persists normalized events.
type EventStore interface {
	// CreateEvent stores the event, assigning ID and CreatedAt when unset.
	CreateEvent(ctx context.Context, event *domain.Event) error

	// EventExistsByExternalID reports whether an event with the given
	// external id is already persisted.
	EventExistsByExternalID(ctx context.Context, externalID string) (bool, error)

	// FindEventByID returns a single event.
	FindEventByID(ctx context.Context, id uuid.UUID) (domain.Event, error)
}

// SubscriptionStore persists user subscriptions.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub *domain.Subscription) error
	FindSubscriptionByID(ctx context.Context, id uuid.UUID) (domain.Subscription, error)
	FindSubscriptionsByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Subscription, error)

	// FindEnabledSubscriptions returns every subscription the poller
	// should service this cycle.
	FindEnabledSubscriptions(ctx context.Context) ([]domain.Subscription, error)

	UpdateSubscription(ctx context.Context, sub domain.Subscription) error
	DeleteSubscription(ctx context.Context, id, userID uuid.UUID) error
}

// RuleStore persists per-subscription rules.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *domain.Rule) error

	// FindRulesBySubscriptionID returns rules in their evaluation order
	// (creation order).
	FindRulesBySubscriptionID(ctx context.Context, subscriptionID uuid.UUID) ([]domain.Rule, error)

	UpdateRule(ctx context.Context, rule domain.Rule) error
	DeleteRule(ctx context.Context, id, subscriptionID uuid.UUID) error
}

// NotificationFilter narrows history queries.
type NotificationFilter struct {
	Status *domain.Status
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// NotificationStore persists notifications and their delivery state.
type NotificationStore interface {
	CreateNotification(ctx context.Context, notif *domain.Notification) error
	FindNotificationByID(ctx context.Context, id uuid.UUID) (domain.Notification, error)

	// UpdateNotificationStatus applies a monotonic status transition,
	// recording the attempt count and last error text. It fails with
	// ErrInvalidTransition when the current status is terminal.
	UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status domain.Status, lastError string, attempts int) (domain.Notification, error)

	// CountNotifications counts a user's notifications on one channel
	// created at or after since. Used by the rate-limit gate.
	CountNotifications(ctx context.Context, userID uuid.UUID, channel domain.Channel, since time.Time) (int, error)

	// FindNotificationsByUserID returns a user's notification history,
	// newest first.
	FindNotificationsByUserID(ctx context.Context, userID uuid.UUID, filter NotificationFilter) ([]domain.Notification, error)
}

// UserStore persists accounts; the pipeline only reads contact fields.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByID(ctx context.Context, id uuid.UUID) (domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (domain.User, error)
}

// Totals is the monitoring snapshot of stored entity counts.
type Totals struct {
	Users         int64 `json:"totalUsers"`
	Subscriptions int64 `json:"totalSubscriptions"`
	Events        int64 `json:"totalEvents"`
	Notifications int64 `json:"totalNotifications"`
}

// Store aggregates every repository the pipeline and API consume.
type Store interface {
	EventStore
	SubscriptionStore
	RuleStore
	NotificationStore
	UserStore

	// Totals returns entity counts for the monitoring endpoint.
	Totals(ctx context.Context) (Totals, error)
}
