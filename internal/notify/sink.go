package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/pkg/broadcast"
)

// defaultSinkBuffer matches the bound on the central broadcast buffer.
const defaultSinkBuffer = 1000

// Sink is the application-wide live notification stream. Every UI
// notification is published once; subscribers receive the full stream
// and StreamFor narrows it to a single user at the consuming edge.
type Sink struct {
	inner *broadcast.Sink[BroadcastMessage]
}

// NewSink creates the stream with the default buffer bound.
func NewSink(log *slog.Logger) *Sink {
	return &Sink{
		inner: broadcast.NewSink[BroadcastMessage](defaultSinkBuffer, broadcast.WithLogger(log)),
	}
}

// Publish pushes a message without blocking. It reports whether the
// message was accepted; a full buffer drops it.
func (s *Sink) Publish(msg BroadcastMessage) bool {
	return s.inner.Push(msg)
}

// StreamFor returns a channel of the given user's messages. The
// subscription is torn down when ctx ends; other subscribers are
// unaffected.
func (s *Sink) StreamFor(ctx context.Context, userID uuid.UUID) <-chan BroadcastMessage {
	sub := s.inner.Subscribe(ctx)

	out := make(chan BroadcastMessage)
	go func() {
		defer close(out)
		for msg := range sub.C() {
			if msg.UserID != userID {
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Subscribers reports the number of live streams.
func (s *Sink) Subscribers() int {
	return s.inner.Subscribers()
}

// Dropped reports how many messages were discarded on a full buffer.
func (s *Sink) Dropped() uint64 {
	return s.inner.Dropped()
}

// Close shuts the stream down and closes all subscriber channels.
func (s *Sink) Close() error {
	return s.inner.Close()
}
