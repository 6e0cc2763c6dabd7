package rules

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/internal/domain"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// NotificationCounter counts a user's notifications on one channel
// created at or after since. The rate gate only looks at the UI channel
// because the fan-out stage always writes exactly one UI notification
// per admitted event, which makes it a reliable admission counter.
type NotificationCounter interface {
	CountNotifications(ctx context.Context, userID uuid.UUID, channel domain.Channel, since time.Time) (int, error)
}

// Engine decides whether an event is admitted for a subscription and
// with what priority. Rules are scanned in order and the first rule
// whose keyword, quiet-hours, and rate-limit gates all pass wins.
type Engine struct {
	counter NotificationCounter
	now     func() time.Time
	log     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger for gate decisions.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates a rule engine backed by the given counter.
func NewEngine(counter NotificationCounter, opts ...Option) *Engine {
	e := &Engine{
		counter: counter,
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the resolved priority and whether the event is
// admitted. With no rules attached the event passes through unchanged.
// A rate-limited rule does not end the scan; later rules may still
// admit the event.
func (e *Engine) Evaluate(ctx context.Context, event domain.Event, ruleList []domain.Rule, userID uuid.UUID) (domain.Priority, bool, error) {
	if len(ruleList) == 0 {
		return event.Priority, true, nil
	}

	for _, rule := range ruleList {
		if !matchesKeywords(event, rule.KeywordFilter) {
			continue
		}
		if inQuietHours(rule, domain.TimeOfDayFrom(e.now())) {
			e.log.DebugContext(ctx, "rule muted by quiet hours",
				slog.String("rule_id", rule.ID.String()),
				logger.UserID(userID))
			continue
		}

		admitted, err := e.passesRateLimit(ctx, rule, userID)
		if err != nil {
			return "", false, fmt.Errorf("rate limit gate: %w", err)
		}
		if !admitted {
			e.log.DebugContext(ctx, "rule rate limited",
				slog.String("rule_id", rule.ID.String()),
				slog.Int("limit_per_hour", rule.RateLimitPerHour),
				logger.UserID(userID))
			continue
		}

		priority := rule.Priority
		if !priority.Valid() {
			priority = event.Priority
		}
		return priority, true, nil
	}

	return "", false, nil
}

// matchesKeywords applies the comma-separated OR terms to the event
// title and payload, case-insensitively. A blank filter matches all.
func matchesKeywords(event domain.Event, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}

	haystack := strings.ToLower(event.Title + " " + event.Payload)
	for term := range strings.SplitSeq(filter, ",") {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(haystack, term) {
			return true
		}
	}
	return false
}

// inQuietHours reports whether now falls in the rule's mute window.
// A window whose start is after its end wraps across midnight.
func inQuietHours(rule domain.Rule, now domain.TimeOfDay) bool {
	if rule.QuietHoursStart == nil || rule.QuietHoursEnd == nil {
		return false
	}

	start := rule.QuietHoursStart.MinuteOfDay()
	end := rule.QuietHoursEnd.MinuteOfDay()
	minute := now.MinuteOfDay()

	if start > end {
		return minute >= start || minute < end
	}
	return minute > start && minute < end
}

func (e *Engine) passesRateLimit(ctx context.Context, rule domain.Rule, userID uuid.UUID) (bool, error) {
	if rule.RateLimitPerHour <= 0 {
		return true, nil
	}

	count, err := e.counter.CountNotifications(ctx, userID, domain.ChannelUI, e.now().Add(-time.Hour))
	if err != nil {
		return false, err
	}
	return count < rule.RateLimitPerHour, nil
}
