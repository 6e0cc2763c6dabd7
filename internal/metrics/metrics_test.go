package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifyhub/internal/metrics"
)

func TestPipeline_Handler(t *testing.T) {
	t.Parallel()

	p := metrics.NewPipeline()
	p.EventIngested("GEN")
	p.EventIngested("GEN")
	p.EventDeduplicated("RSS")
	p.NotificationCreated("UI")
	p.DeliverySent("TELEGRAM")
	p.DeliveryFailed("TELEGRAM")
	p.BroadcastDropped()

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, `notifyhub_events_ingested_total{source="GEN"} 2`)
	assert.Contains(t, out, `notifyhub_events_deduplicated_total{source="RSS"} 1`)
	assert.Contains(t, out, `notifyhub_notifications_created_total{channel="UI"} 1`)
	assert.Contains(t, out, `notifyhub_deliveries_sent_total{channel="TELEGRAM"} 1`)
	assert.Contains(t, out, `notifyhub_deliveries_failed_total{channel="TELEGRAM"} 1`)
	assert.Contains(t, out, "notifyhub_broadcast_dropped_total 1")
}
