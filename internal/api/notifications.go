package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrymomot/notifyhub/internal/domain"
	"github.com/dmitrymomot/notifyhub/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (a *API) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFrom(r.Context())
	q := r.URL.Query()

	page := 0
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "page must be a non-negative integer")
			return
		}
		page = n
	}

	size := defaultPageSize
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "size must be a positive integer")
			return
		}
		size = min(n, maxPageSize)
	}

	filter := store.NotificationFilter{
		Limit:  size,
		Offset: page * size,
	}

	if raw := q.Get("status"); raw != "" {
		status := domain.Status(raw)
		switch status {
		case domain.StatusCreated, domain.StatusQueued, domain.StatusSent, domain.StatusFailed:
			filter.Status = &status
		default:
			respondError(w, http.StatusBadRequest, "unknown status")
			return
		}
	}

	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "from must be RFC 3339")
			return
		}
		filter.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "to must be RFC 3339")
			return
		}
		filter.To = &to
	}

	notifs, err := a.store.FindNotificationsByUserID(r.Context(), userID, filter)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	items := make([]notificationView, 0, len(notifs))
	for _, notif := range notifs {
		view := notificationView{Notification: notif}
		if event, err := a.store.FindEventByID(r.Context(), notif.EventID); err == nil {
			view.EventTitle = event.Title
			view.EventSourceType = event.SourceType
			view.EventPriority = event.Priority
			view.EventPayload = event.Payload
		}
		items = append(items, view)
	}
	respondJSON(w, http.StatusOK, items)
}

// notificationView joins a notification with its event for list
// responses, mirroring what the live stream sends.
type notificationView struct {
	domain.Notification
	EventTitle      string          `json:"event_title,omitempty"`
	EventSourceType string          `json:"event_source_type,omitempty"`
	EventPriority   domain.Priority `json:"event_priority,omitempty"`
	EventPayload    string          `json:"event_payload,omitempty"`
}

func (a *API) handleMonitoringStats(w http.ResponseWriter, r *http.Request) {
	totals, err := a.store.Totals(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, totals)
}
