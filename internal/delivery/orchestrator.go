package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifyhub/internal/domain"
	"github.com/dmitrymomot/notifyhub/internal/store"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/retry"
)

const (
	maxDeliveryAttempts = 4
	deliveryBackoffBase = 2 * time.Second
)

// Metrics receives delivery counters.
type Metrics interface {
	DeliverySent(channel string)
	DeliveryFailed(channel string)
}

type nopMetrics struct{}

func (nopMetrics) DeliverySent(string)   {}
func (nopMetrics) DeliveryFailed(string) {}

// Orchestrator routes a notification to the sender for its channel and
// records the outcome as a status transition. Transient sender errors
// are retried with exponential backoff; the attempt count lands on the
// notification either way.
type Orchestrator struct {
	store   store.Store
	senders map[domain.Channel]Sender
	backoff retry.BackoffStrategy
	metrics Metrics
	log     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics attaches delivery counters.
func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithBackoff overrides the retry backoff, mainly for tests.
func WithBackoff(b retry.BackoffStrategy) Option {
	return func(o *Orchestrator) { o.backoff = b }
}

// NewOrchestrator wires the given senders by channel.
func NewOrchestrator(st store.Store, senders []Sender, log *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   st,
		senders: make(map[domain.Channel]Sender, len(senders)),
		backoff: retry.ExponentialBackoff{InitialInterval: deliveryBackoffBase, Multiplier: 2},
		metrics: nopMetrics{},
		log:     log,
	}
	for _, s := range senders {
		o.senders[s.Channel()] = s
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Deliver pushes the notification through its external channel. UI and
// unknown channels need no external delivery and return nil. A skipped
// send leaves the notification QUEUED; success and exhausted retries
// move it to SENT or FAILED.
func (o *Orchestrator) Deliver(ctx context.Context, notif domain.Notification, event domain.Event) error {
	sender, ok := o.senders[notif.Channel]
	if !ok {
		o.log.DebugContext(ctx, "no external delivery for channel",
			slog.String("channel", string(notif.Channel)))
		return nil
	}

	user, err := o.store.FindUserByID(ctx, notif.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	if _, err := o.store.UpdateNotificationStatus(ctx, notif.ID, domain.StatusQueued, "", notif.Attempts); err != nil {
		return fmt.Errorf("queue notification: %w", err)
	}

	policy := retry.Policy{
		MaxAttempts: maxDeliveryAttempts,
		Backoff:     o.backoff,
		OnRetry: func(attempt int, err error) {
			o.log.WarnContext(ctx, "retrying delivery",
				logger.NotificationID(notif.ID),
				slog.String("channel", string(notif.Channel)),
				slog.Int("attempt", attempt),
				logger.Error(err))
		},
	}

	attempts, err := retry.Do(ctx, policy, func(ctx context.Context) error {
		err := sender.Send(ctx, user, event)
		if errors.Is(err, ErrSkipped) {
			return retry.Permanent(err)
		}
		return err
	})

	switch {
	case err == nil:
		if _, err := o.store.UpdateNotificationStatus(ctx, notif.ID, domain.StatusSent, "", attempts); err != nil {
			return fmt.Errorf("mark sent: %w", err)
		}
		o.metrics.DeliverySent(string(notif.Channel))
		o.log.InfoContext(ctx, "notification delivered",
			logger.NotificationID(notif.ID),
			slog.String("channel", string(notif.Channel)),
			slog.Int("attempts", attempts))
		return nil

	case errors.Is(err, ErrSkipped):
		o.log.DebugContext(ctx, "delivery skipped",
			logger.NotificationID(notif.ID),
			slog.String("channel", string(notif.Channel)))
		return nil

	default:
		if _, uerr := o.store.UpdateNotificationStatus(ctx, notif.ID, domain.StatusFailed, err.Error(), attempts); uerr != nil {
			return fmt.Errorf("mark failed: %w", errors.Join(err, uerr))
		}
		o.metrics.DeliveryFailed(string(notif.Channel))
		o.log.ErrorContext(ctx, "delivery failed",
			logger.NotificationID(notif.ID),
			slog.String("channel", string(notif.Channel)),
			slog.Int("attempts", attempts),
			logger.Error(err))
		return err
	}
}
