package api_test

import (
	"bufio"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/internal/domain"
	"github.com/dmitrymomot/notifyhub/internal/notify"
)

type sseEvent struct {
	name string
	data string
}

// readEvents consumes the stream until n complete events arrived or the
// body closed.
func readEvents(t *testing.T, body *bufio.Scanner, n int) []sseEvent {
	t.Helper()

	var events []sseEvent
	var current sseEvent
	for body.Scan() {
		line := body.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			current.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			current.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if current.name != "" {
				events = append(events, current)
				current = sseEvent{}
			}
			if len(events) >= n {
				return events
			}
		}
	}
	return events
}

func TestStreamNotifications(t *testing.T) {
	t.Parallel()

	t.Run("delivers published messages and heartbeats", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		auth := env.register(t, "ada")

		req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/stream/notifications?token="+auth.Token, nil)
		require.NoError(t, err)

		resp, err := env.server.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		require.Eventually(t, func() bool {
			return env.sink.Subscribers() == 1
		}, time.Second, 5*time.Millisecond)

		msg := notify.BroadcastMessage{
			UserID:        auth.UserID,
			Channel:       domain.ChannelUI,
			Status:        domain.StatusCreated,
			EventTitle:    "disk almost full",
			EventPriority: domain.PriorityHigh,
		}
		require.True(t, env.sink.Publish(msg))

		events := readEvents(t, bufio.NewScanner(resp.Body), 3)
		require.Len(t, events, 3)

		names := make([]string, 0, len(events))
		for _, ev := range events {
			names = append(names, ev.name)
		}
		assert.Contains(t, names, "notification")
		assert.Contains(t, names, "heartbeat")

		for _, ev := range events {
			if ev.name != "notification" {
				continue
			}
			var got notify.BroadcastMessage
			require.NoError(t, json.Unmarshal([]byte(ev.data), &got))
			assert.Equal(t, auth.UserID, got.UserID)
			assert.Equal(t, "disk almost full", got.EventTitle)
			assert.Equal(t, domain.PriorityHigh, got.EventPriority)
		}
	})

	t.Run("ignores other users' messages", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		ada := env.register(t, "ada")
		grace := env.register(t, "grace")

		req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/stream/notifications?token="+ada.Token, nil)
		require.NoError(t, err)
		resp, err := env.server.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Eventually(t, func() bool {
			return env.sink.Subscribers() == 1
		}, time.Second, 5*time.Millisecond)

		env.sink.Publish(notify.BroadcastMessage{UserID: grace.UserID, EventTitle: "not for ada"})
		env.sink.Publish(notify.BroadcastMessage{UserID: ada.UserID, EventTitle: "for ada"})

		events := readEvents(t, bufio.NewScanner(resp.Body), 3)
		var notifications []sseEvent
		for _, ev := range events {
			if ev.name == "notification" {
				notifications = append(notifications, ev)
			}
		}
		require.Len(t, notifications, 1)
		assert.Contains(t, notifications[0].data, "for ada")
		assert.NotContains(t, notifications[0].data, "not for ada")
	})

	t.Run("rejects anonymous clients", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		resp, err := env.server.Client().Get(env.server.URL + "/api/stream/notifications")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
