package workerpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/pkg/workerpool"
)

func TestPool_Do(t *testing.T) {
	t.Parallel()

	t.Run("runs work and returns its error", func(t *testing.T) {
		t.Parallel()

		pool := workerpool.New(2)
		defer pool.Close()

		require.NoError(t, pool.Do(context.Background(), func() error { return nil }))

		sentinel := errors.New("parse failed")
		assert.ErrorIs(t, pool.Do(context.Background(), func() error { return sentinel }), sentinel)
	})

	t.Run("bounds concurrency", func(t *testing.T) {
		t.Parallel()

		pool := workerpool.New(2)
		defer pool.Close()

		var active, peak atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = pool.Do(context.Background(), func() error {
					n := active.Add(1)
					for {
						p := peak.Load()
						if n <= p || peak.CompareAndSwap(p, n) {
							break
						}
					}
					time.Sleep(20 * time.Millisecond)
					active.Add(-1)
					return nil
				})
			}()
		}
		wg.Wait()

		assert.LessOrEqual(t, peak.Load(), int32(2))
	})

	t.Run("recovers panics", func(t *testing.T) {
		t.Parallel()

		pool := workerpool.New(1)
		defer pool.Close()

		err := pool.Do(context.Background(), func() error {
			panic("bad payload")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic")
	})

	t.Run("cancelled context stops waiting for a slot", func(t *testing.T) {
		t.Parallel()

		pool := workerpool.New(1)
		defer pool.Close()

		release := make(chan struct{})
		go func() {
			_ = pool.Do(context.Background(), func() error {
				<-release
				return nil
			})
		}()
		time.Sleep(10 * time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := pool.Do(ctx, func() error { return nil })
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		close(release)
	})

	t.Run("closed pool rejects work", func(t *testing.T) {
		t.Parallel()

		pool := workerpool.New(1)
		pool.Close()

		err := pool.Do(context.Background(), func() error { return nil })
		assert.ErrorIs(t, err, workerpool.ErrPoolClosed)
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("returns produced value", func(t *testing.T) {
		t.Parallel()

		pool := workerpool.New(1)
		defer pool.Close()

		got, err := workerpool.Run(context.Background(), pool, func() (int, error) {
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("propagates task error", func(t *testing.T) {
		t.Parallel()

		pool := workerpool.New(1)
		defer pool.Close()

		sentinel := errors.New("no feed")
		_, err := workerpool.Run(context.Background(), pool, func() (string, error) {
			return "", sentinel
		})
		assert.ErrorIs(t, err, sentinel)
	})
}
