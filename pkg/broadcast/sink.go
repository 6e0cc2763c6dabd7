package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Subscriber receives items multicast through a Sink.
type Subscriber[T any] interface {
	// C returns the channel items are delivered on. It is closed when
	// the subscriber or the sink shuts down.
	C() <-chan T

	// Close unsubscribes and closes the receive channel. Close is
	// idempotent and never affects other subscribers.
	Close() error
}

type subscriber[T any] struct {
	ch     chan T
	closed bool
	mu     sync.RWMutex
}

func newSubscriber[T any](bufferSize int) *subscriber[T] {
	return &subscriber[T]{ch: make(chan T, bufferSize)}
}

func (s *subscriber[T]) C() <-chan T {
	return s.ch
}

func (s *subscriber[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.ch)
		s.closed = true
	}
	return nil
}

func (s *subscriber[T]) send(item T) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- item:
		return true
	default:
		return false
	}
}

// Sink is a process-wide multicast publisher with a bounded pending
// buffer. Push never blocks: when the buffer is full the item is
// dropped and counted. Buffered items are held until at least one
// subscriber is registered, then fanned out; delivery to each
// subscriber is non-blocking and best-effort.
//
// All methods are safe for concurrent use.
type Sink[T any] struct {
	buf         chan T
	subscribers map[*subscriber[T]]struct{}
	subBuffer   int
	wake        chan struct{}
	done        chan struct{}
	closed      bool
	dropped     atomic.Uint64
	mu          sync.RWMutex
	wg          sync.WaitGroup
	logger      *slog.Logger
}

// Option configures a Sink.
type Option func(*sinkConfig)

type sinkConfig struct {
	subscriberBuffer int
	logger           *slog.Logger
}

// WithSubscriberBuffer sets the per-subscriber channel capacity.
func WithSubscriberBuffer(n int) Option {
	return func(c *sinkConfig) {
		if n > 0 {
			c.subscriberBuffer = n
		}
	}
}

// WithLogger sets the logger used for drop reporting.
func WithLogger(log *slog.Logger) Option {
	return func(c *sinkConfig) {
		if log != nil {
			c.logger = log
		}
	}
}

// NewSink creates a multicast sink with the given pending-buffer
// capacity. A minimum capacity of 1 is enforced so Push stays
// non-blocking.
func NewSink[T any](bufferSize int, opts ...Option) *Sink[T] {
	cfg := &sinkConfig{
		subscriberBuffer: 64,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Sink[T]{
		buf:         make(chan T, max(bufferSize, 1)),
		subscribers: make(map[*subscriber[T]]struct{}),
		subBuffer:   cfg.subscriberBuffer,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		logger:      cfg.logger,
	}

	s.wg.Add(1)
	go s.pump()

	return s
}

// Push enqueues an item without blocking. It returns false when the
// sink is closed or the pending buffer is full; the item is then
// dropped and logged, never retried.
func (s *Sink[T]) Push(item T) bool {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return false
	}

	select {
	case s.buf <- item:
		return true
	default:
		s.dropped.Add(1)
		s.logger.Warn("broadcast buffer full, dropping item",
			slog.Uint64("dropped_total", s.dropped.Load()))
		return false
	}
}

// Subscribe registers a new subscriber that receives every item pushed
// from now on (plus any backlog still pending in the buffer). The
// subscription is torn down when ctx is cancelled or Close is called
// on the returned subscriber; either way other subscribers are
// unaffected. Subscribing to a closed sink yields an already-closed
// subscriber.
func (s *Sink[T]) Subscribe(ctx context.Context) Subscriber[T] {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		sub := newSubscriber[T](s.subBuffer)
		_ = sub.Close()
		return sub
	}

	sub := newSubscriber[T](s.subBuffer)
	s.subscribers[sub] = struct{}{}
	s.mu.Unlock()

	// Wake the pump in case it is parked waiting for a first subscriber.
	select {
	case s.wake <- struct{}{}:
	default:
	}

	if ctx.Done() != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			select {
			case <-ctx.Done():
				s.unsubscribe(sub)
			case <-s.done:
			}
		}()
	}

	return sub
}

// Subscribers returns the number of currently registered subscribers.
func (s *Sink[T]) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Dropped returns how many pushed items were discarded because the
// pending buffer was full.
func (s *Sink[T]) Dropped() uint64 {
	return s.dropped.Load()
}

// Close shuts the sink down and closes every subscriber. It is safe to
// call multiple times.
func (s *Sink[T]) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	for sub := range s.subscribers {
		_ = sub.Close()
	}
	clear(s.subscribers)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// pump moves items from the pending buffer to subscribers. It parks
// while nobody is subscribed so the buffer can absorb a burst instead
// of discarding it.
func (s *Sink[T]) pump() {
	defer s.wg.Done()

	for {
		s.mu.RLock()
		idle := len(s.subscribers) == 0
		s.mu.RUnlock()

		if idle {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}

		select {
		case item := <-s.buf:
			s.fanout(item)
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}

func (s *Sink[T]) fanout(item T) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for sub := range s.subscribers {
		if !sub.send(item) {
			// Slow or closed consumer: drop for this subscriber only.
			s.dropped.Add(1)
		}
	}
}

func (s *Sink[T]) unsubscribe(sub *subscriber[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subscribers, sub)
	_ = sub.Close()
}
