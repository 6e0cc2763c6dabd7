package rules_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/internal/domain"
	"github.com/dmitrymomot/notifyhub/internal/rules"
)

type stubCounter struct {
	count int
	err   error
	calls int
}

func (s *stubCounter) CountNotifications(ctx context.Context, userID uuid.UUID, channel domain.Channel, since time.Time) (int, error) {
	s.calls++
	return s.count, s.err
}

func fixedClock(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, time.March, 10, hour, minute, 0, 0, time.UTC)
	}
}

func tod(hour, minute int) *domain.TimeOfDay {
	return &domain.TimeOfDay{Hour: hour, Minute: minute}
}

func TestEngine_Evaluate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	event := domain.Event{
		Title:    "Service is Down",
		Payload:  "checkout latency spiking",
		Priority: domain.PriorityMedium,
	}

	t.Run("no rules passes through", func(t *testing.T) {
		t.Parallel()

		engine := rules.NewEngine(&stubCounter{})
		priority, admitted, err := engine.Evaluate(context.Background(), event, nil, userID)
		require.NoError(t, err)
		assert.True(t, admitted)
		assert.Equal(t, domain.PriorityMedium, priority)
	})

	t.Run("keyword terms are OR matched case-insensitively", func(t *testing.T) {
		t.Parallel()

		engine := rules.NewEngine(&stubCounter{})
		rule := domain.Rule{KeywordFilter: "outage,down", Priority: domain.PriorityHigh}

		priority, admitted, err := engine.Evaluate(context.Background(), event, []domain.Rule{rule}, userID)
		require.NoError(t, err)
		assert.True(t, admitted)
		assert.Equal(t, domain.PriorityHigh, priority)

		calm := domain.Event{Title: "All systems normal", Priority: domain.PriorityLow}
		_, admitted, err = engine.Evaluate(context.Background(), calm, []domain.Rule{rule}, userID)
		require.NoError(t, err)
		assert.False(t, admitted)
	})

	t.Run("first matching rule sets priority", func(t *testing.T) {
		t.Parallel()

		engine := rules.NewEngine(&stubCounter{})
		ruleList := []domain.Rule{
			{KeywordFilter: "nomatch", Priority: domain.PriorityHigh},
			{KeywordFilter: "down", Priority: domain.PriorityLow},
			{Priority: domain.PriorityHigh},
		}

		priority, admitted, err := engine.Evaluate(context.Background(), event, ruleList, userID)
		require.NoError(t, err)
		assert.True(t, admitted)
		assert.Equal(t, domain.PriorityLow, priority)
	})

	t.Run("quiet hours mute inside window", func(t *testing.T) {
		t.Parallel()

		rule := domain.Rule{
			Priority:        domain.PriorityHigh,
			QuietHoursStart: tod(22, 0),
			QuietHoursEnd:   tod(6, 0),
		}

		for _, tc := range []struct {
			name     string
			hour     int
			minute   int
			admitted bool
		}{
			{"before midnight inside", 23, 30, false},
			{"after midnight inside", 2, 0, false},
			{"midday outside", 12, 0, true},
			{"exactly at end", 6, 0, true},
		} {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				engine := rules.NewEngine(&stubCounter{}, rules.WithClock(fixedClock(tc.hour, tc.minute)))
				_, admitted, err := engine.Evaluate(context.Background(), event, []domain.Rule{rule}, userID)
				require.NoError(t, err)
				assert.Equal(t, tc.admitted, admitted)
			})
		}
	})

	t.Run("non-wrapping quiet window", func(t *testing.T) {
		t.Parallel()

		rule := domain.Rule{
			Priority:        domain.PriorityHigh,
			QuietHoursStart: tod(9, 0),
			QuietHoursEnd:   tod(17, 0),
		}

		engine := rules.NewEngine(&stubCounter{}, rules.WithClock(fixedClock(12, 0)))
		_, admitted, err := engine.Evaluate(context.Background(), event, []domain.Rule{rule}, userID)
		require.NoError(t, err)
		assert.False(t, admitted)

		engine = rules.NewEngine(&stubCounter{}, rules.WithClock(fixedClock(20, 0)))
		_, admitted, err = engine.Evaluate(context.Background(), event, []domain.Rule{rule}, userID)
		require.NoError(t, err)
		assert.True(t, admitted)
	})

	t.Run("rate limit filters when hour budget spent", func(t *testing.T) {
		t.Parallel()

		rule := domain.Rule{RateLimitPerHour: 2, Priority: domain.PriorityHigh}

		engine := rules.NewEngine(&stubCounter{count: 1})
		_, admitted, err := engine.Evaluate(context.Background(), event, []domain.Rule{rule}, userID)
		require.NoError(t, err)
		assert.True(t, admitted)

		engine = rules.NewEngine(&stubCounter{count: 2})
		_, admitted, err = engine.Evaluate(context.Background(), event, []domain.Rule{rule}, userID)
		require.NoError(t, err)
		assert.False(t, admitted)
	})

	t.Run("rate limited rule does not end the scan", func(t *testing.T) {
		t.Parallel()

		counter := &stubCounter{count: 10}
		engine := rules.NewEngine(counter)
		ruleList := []domain.Rule{
			{RateLimitPerHour: 1, Priority: domain.PriorityHigh},
			{Priority: domain.PriorityLow},
		}

		priority, admitted, err := engine.Evaluate(context.Background(), event, ruleList, userID)
		require.NoError(t, err)
		assert.True(t, admitted)
		assert.Equal(t, domain.PriorityLow, priority)
		assert.Equal(t, 1, counter.calls)
	})

	t.Run("zero limit means unlimited", func(t *testing.T) {
		t.Parallel()

		counter := &stubCounter{count: 500}
		engine := rules.NewEngine(counter)
		rule := domain.Rule{Priority: domain.PriorityHigh}

		_, admitted, err := engine.Evaluate(context.Background(), event, []domain.Rule{rule}, userID)
		require.NoError(t, err)
		assert.True(t, admitted)
		assert.Zero(t, counter.calls)
	})

	t.Run("counter failure surfaces", func(t *testing.T) {
		t.Parallel()

		engine := rules.NewEngine(&stubCounter{err: errors.New("db gone")})
		rule := domain.Rule{RateLimitPerHour: 1, Priority: domain.PriorityHigh}

		_, _, err := engine.Evaluate(context.Background(), event, []domain.Rule{rule}, userID)
		require.Error(t, err)
	})

	t.Run("invalid rule priority falls back to event priority", func(t *testing.T) {
		t.Parallel()

		engine := rules.NewEngine(&stubCounter{})
		rule := domain.Rule{Priority: "URGENT"}

		priority, admitted, err := engine.Evaluate(context.Background(), event, []domain.Rule{rule}, userID)
		require.NoError(t, err)
		assert.True(t, admitted)
		assert.Equal(t, domain.PriorityMedium, priority)
	})
}
