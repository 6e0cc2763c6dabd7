package retry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/retry"
)

func instantPolicy(maxAttempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts: maxAttempts,
		Backoff:     retry.FixedBackoff{Interval: time.Millisecond},
	}
}

func TestDo(t *testing.T) {
	t.Parallel()

	t.Run("succeeds first try", func(t *testing.T) {
		t.Parallel()

		attempts, err := retry.Do(context.Background(), instantPolicy(4), func(context.Context) error {
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("fails twice then succeeds", func(t *testing.T) {
		t.Parallel()

		calls := 0
		attempts, err := retry.Do(context.Background(), instantPolicy(4), func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("exhausts attempts and keeps last error", func(t *testing.T) {
		t.Parallel()

		lastErr := errors.New("upstream down")
		attempts, err := retry.Do(context.Background(), instantPolicy(4), func(context.Context) error {
			return lastErr
		})
		assert.Equal(t, 4, attempts)
		assert.ErrorIs(t, err, lastErr)
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		t.Parallel()

		sentinel := errors.New("not configured")
		calls := 0
		attempts, err := retry.Do(context.Background(), instantPolicy(4), func(context.Context) error {
			calls++
			return retry.Permanent(sentinel)
		})
		assert.Equal(t, 1, calls)
		assert.Equal(t, 1, attempts)
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("on retry callback sees attempt numbers", func(t *testing.T) {
		t.Parallel()

		var seen []int
		policy := instantPolicy(3)
		policy.OnRetry = func(attempt int, err error) {
			seen = append(seen, attempt)
		}

		_, err := retry.Do(context.Background(), policy, func(context.Context) error {
			return errors.New("boom")
		})
		require.Error(t, err)
		assert.Equal(t, []int{2, 3}, seen)
	})

	t.Run("context cancellation during backoff", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		policy := retry.Policy{
			MaxAttempts: 4,
			Backoff:     retry.FixedBackoff{Interval: time.Minute},
		}

		firstAttempt := make(chan struct{})
		var once sync.Once
		done := make(chan struct{})
		var attempts int
		var err error
		go func() {
			defer close(done)
			attempts, err = retry.Do(ctx, policy, func(context.Context) error {
				once.Do(func() { close(firstAttempt) })
				return errors.New("slow")
			})
		}()

		<-firstAttempt
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Do did not return after context cancellation")
		}
		assert.Equal(t, 1, attempts)
		assert.Error(t, err)
	})
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	t.Run("exponential growth without jitter", func(t *testing.T) {
		t.Parallel()

		b := retry.ExponentialBackoff{InitialInterval: 2 * time.Second, Multiplier: 2}
		assert.Equal(t, 2*time.Second, b.NextInterval(1))
		assert.Equal(t, 4*time.Second, b.NextInterval(2))
		assert.Equal(t, 8*time.Second, b.NextInterval(3))
	})

	t.Run("exponential caps at max interval", func(t *testing.T) {
		t.Parallel()

		b := retry.ExponentialBackoff{InitialInterval: 10 * time.Second, MaxInterval: 15 * time.Second, Multiplier: 2}
		assert.Equal(t, 15*time.Second, b.NextInterval(5))
	})

	t.Run("fixed is constant", func(t *testing.T) {
		t.Parallel()

		b := retry.FixedBackoff{Interval: 2 * time.Second}
		assert.Equal(t, 2*time.Second, b.NextInterval(1))
		assert.Equal(t, 2*time.Second, b.NextInterval(9))
	})

	t.Run("zero attempt yields zero delay", func(t *testing.T) {
		t.Parallel()

		assert.Zero(t, retry.ExponentialBackoff{}.NextInterval(0))
		assert.Zero(t, retry.FixedBackoff{Interval: time.Second}.NextInterval(0))
	})
}
