package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/internal/domain"
	"github.com/dmitrymomot/notifyhub/internal/store"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/workerpool"
)

// PollerConfig controls the ingest cycle cadence and fan-out width.
type PollerConfig struct {
	InitialDelay time.Duration `env:"INGEST_INITIAL_DELAY" envDefault:"5s"`
	Interval     time.Duration `env:"INGEST_POLL_INTERVAL" envDefault:"60s"`
	Concurrency  int           `env:"INGEST_CONCURRENCY" envDefault:"4"`
}

// Evaluator decides whether an event is admitted for a user and with
// what priority.
type Evaluator interface {
	Evaluate(ctx context.Context, event domain.Event, rules []domain.Rule, userID uuid.UUID) (domain.Priority, bool, error)
}

// Notifier fans an admitted event out to the user's channels.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event domain.Event, priority domain.Priority) error
}

// Metrics receives ingest counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	EventIngested(sourceType string)
	EventDeduplicated(sourceType string)
}

type nopMetrics struct{}

func (nopMetrics) EventIngested(string)     {}
func (nopMetrics) EventDeduplicated(string) {}

// Poller drives the ingest pipeline: every cycle it loads enabled
// subscriptions, groups them by source type and params so each distinct
// upstream is polled once, deduplicates the returned events, and runs
// rule evaluation plus notification fan-out per subscriber.
type Poller struct {
	cfg       PollerConfig
	subs      store.SubscriptionStore
	rules     store.RuleStore
	registry  *Registry
	deduper   *Deduper
	engine    Evaluator
	notifier  Notifier
	metrics   Metrics
	log       *slog.Logger
	groupPool *workerpool.Pool
	eventPool *workerpool.Pool
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithMetrics attaches ingest counters.
func WithMetrics(m Metrics) PollerOption {
	return func(p *Poller) { p.metrics = m }
}

// NewPoller wires the ingest pipeline. Group polling and per-event
// processing run on separate pools so a group task waiting on its
// events cannot starve the slots those events need.
func NewPoller(
	cfg PollerConfig,
	st store.Store,
	registry *Registry,
	engine Evaluator,
	notifier Notifier,
	log *slog.Logger,
	opts ...PollerOption,
) *Poller {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	p := &Poller{
		cfg:       cfg,
		subs:      st,
		rules:     st,
		registry:  registry,
		deduper:   NewDeduper(st, log),
		engine:    engine,
		notifier:  notifier,
		metrics:   nopMetrics{},
		log:       log,
		groupPool: workerpool.New(cfg.Concurrency),
		eventPool: workerpool.New(cfg.Concurrency),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks until ctx is cancelled, executing one ingest cycle after
// the initial delay and then once per interval. Cycle failures are
// logged and never stop the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.log.InfoContext(ctx, "ingest poller starting",
		slog.Any("sources", p.registry.SourceTypes()),
		slog.Duration("interval", p.cfg.Interval))

	defer p.groupPool.Close()
	defer p.eventPool.Close()

	initial := time.NewTimer(p.cfg.InitialDelay)
	defer initial.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-initial.C:
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := p.Poll(ctx); err != nil {
			p.log.ErrorContext(ctx, "ingest cycle failed", logger.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll executes a single ingest cycle.
func (p *Poller) Poll(ctx context.Context) error {
	subs, err := p.subs.FindEnabledSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("load enabled subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}
	p.log.DebugContext(ctx, "ingest cycle", slog.Int("subscriptions", len(subs)))

	groups := make(map[string][]domain.Subscription)
	for _, sub := range subs {
		key := sub.GroupKey()
		groups[key] = append(groups[key], sub)
	}

	var wg sync.WaitGroup
	for _, group := range groups {
		wg.Add(1)
		go func(group []domain.Subscription) {
			defer wg.Done()
			err := p.groupPool.Do(ctx, func() error {
				return p.pollGroup(ctx, group)
			})
			if err != nil {
				rep := group[0]
				p.log.ErrorContext(ctx, "source poll failed",
					slog.String("source_type", rep.SourceType),
					logger.Error(err))
			}
		}(group)
	}
	wg.Wait()
	return nil
}

// pollGroup polls the upstream once for all subscriptions sharing the
// same source type and params.
func (p *Poller) pollGroup(ctx context.Context, group []domain.Subscription) error {
	rep := group[0]

	connector, err := p.registry.Get(rep.SourceType)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownSource, rep.SourceType)
	}

	params := rep.Params
	if params == "" {
		params = "{}"
	}
	events, err := connector.Poll(ctx, params)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, event := range events {
		wg.Add(1)
		go func(event domain.Event) {
			defer wg.Done()
			err := p.eventPool.Do(ctx, func() error {
				return p.processEvent(ctx, event, group)
			})
			if err != nil {
				p.log.ErrorContext(ctx, "event processing failed",
					slog.String("title", event.Title),
					logger.Error(err))
			}
		}(event)
	}
	wg.Wait()
	return nil
}

func (p *Poller) processEvent(ctx context.Context, event domain.Event, subs []domain.Subscription) error {
	saved, fresh, err := p.deduper.Persist(ctx, event)
	if err != nil {
		return err
	}
	if !fresh {
		p.metrics.EventDeduplicated(event.SourceType)
		return nil
	}
	p.metrics.EventIngested(event.SourceType)

	for _, sub := range subs {
		if err := p.processForSubscription(ctx, saved, sub); err != nil {
			p.log.ErrorContext(ctx, "subscription processing failed",
				slog.String("subscription_id", sub.ID.String()),
				logger.UserID(sub.UserID),
				logger.Error(err))
		}
	}
	return nil
}

func (p *Poller) processForSubscription(ctx context.Context, event domain.Event, sub domain.Subscription) error {
	ruleList, err := p.rules.FindRulesBySubscriptionID(ctx, sub.ID)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}

	priority, admitted, err := p.engine.Evaluate(ctx, event, ruleList, sub.UserID)
	if err != nil {
		return fmt.Errorf("evaluate rules: %w", err)
	}
	if !admitted {
		return nil
	}

	return p.notifier.Notify(ctx, sub.UserID, event, priority)
}
