package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/internal/domain"
	"github.com/dmitrymomot/notifyhub/internal/store"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// Deliverer pushes a notification through its external channel.
type Deliverer interface {
	Deliver(ctx context.Context, notif domain.Notification, event domain.Event) error
}

// Metrics receives fan-out counters.
type Metrics interface {
	NotificationCreated(channel string)
	BroadcastDropped()
}

type nopMetrics struct{}

func (nopMetrics) NotificationCreated(string) {}
func (nopMetrics) BroadcastDropped()          {}

// Service fans one admitted event out to a user's channels: a UI
// notification pushed onto the live stream and a Telegram notification
// handed to the delivery orchestrator. Both are created regardless of
// whether the user has the channel configured; delivery decides what
// to do with an unconfigured one.
type Service struct {
	notifs    store.NotificationStore
	sink      *Sink
	deliverer Deliverer
	metrics   Metrics
	log       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches fan-out counters.
func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService wires the fan-out stage.
func NewService(notifs store.NotificationStore, sink *Sink, deliverer Deliverer, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		notifs:    notifs,
		sink:      sink,
		deliverer: deliverer,
		metrics:   nopMetrics{},
		log:       log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notify creates the per-channel notifications for one admitted event.
// The resolved priority travels on an enriched copy of the event; the
// persisted event keeps its original priority.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, event domain.Event, priority domain.Priority) error {
	enriched := event.WithPriority(priority)

	uiNotif, err := s.create(ctx, userID, enriched, domain.ChannelUI)
	if err != nil {
		return fmt.Errorf("create ui notification: %w", err)
	}
	if !s.sink.Publish(NewBroadcastMessage(uiNotif, enriched)) {
		s.metrics.BroadcastDropped()
	}

	tgNotif, err := s.create(ctx, userID, enriched, domain.ChannelTelegram)
	if err != nil {
		return fmt.Errorf("create telegram notification: %w", err)
	}

	if err := s.deliverer.Deliver(ctx, tgNotif, enriched); err != nil {
		// Delivery failures are recorded on the notification itself;
		// the fan-out already succeeded.
		s.log.ErrorContext(ctx, "delivery failed",
			logger.NotificationID(tgNotif.ID),
			logger.UserID(userID),
			logger.Error(err))
	}
	return nil
}

func (s *Service) create(ctx context.Context, userID uuid.UUID, event domain.Event, channel domain.Channel) (domain.Notification, error) {
	notif := domain.Notification{
		UserID:  userID,
		EventID: event.ID,
		Channel: channel,
		Status:  domain.StatusCreated,
	}
	if err := s.notifs.CreateNotification(ctx, &notif); err != nil {
		return domain.Notification{}, err
	}
	s.metrics.NotificationCreated(string(channel))

	s.log.DebugContext(ctx, "notification created",
		logger.NotificationID(notif.ID),
		logger.UserID(userID),
		slog.String("channel", string(channel)))
	return notif, nil
}
