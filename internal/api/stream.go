package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// handleStream serves the live notification stream as Server-Sent
// Events. Notifications arrive as named `notification` events; a named
// `heartbeat` event keeps intermediaries from closing the connection.
func (a *API) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	userID, _ := UserIDFrom(r.Context())
	ctx := r.Context()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	a.log.InfoContext(ctx, "sse connection opened", logger.UserID(userID))
	defer a.log.InfoContext(ctx, "sse connection closed", logger.UserID(userID))

	stream := a.sink.StreamFor(ctx, userID)

	heartbeat := time.NewTicker(a.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, open := <-stream:
			if !open {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				a.log.ErrorContext(ctx, "failed to encode stream message", logger.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: notification\ndata: %s\n\n", data)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, "event: heartbeat\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}
