package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline holds the counters incremented by the ingest, fan-out, and
// delivery stages. It satisfies the Metrics interfaces those packages
// declare.
type Pipeline struct {
	registry *prometheus.Registry

	eventsIngested     *prometheus.CounterVec
	eventsDeduplicated *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	deliveriesSent     *prometheus.CounterVec
	deliveriesFailed   *prometheus.CounterVec
	broadcastDropped   prometheus.Counter
}

// NewPipeline registers the pipeline counters on a fresh registry.
func NewPipeline() *Pipeline {
	registry := prometheus.NewRegistry()

	p := &Pipeline{
		registry: registry,
		eventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyhub",
			Name:      "events_ingested_total",
			Help:      "Events persisted after the dedup gate",
		}, []string{"source"}),
		eventsDeduplicated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyhub",
			Name:      "events_deduplicated_total",
			Help:      "Events discarded as already seen",
		}, []string{"source"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyhub",
			Name:      "notifications_created_total",
			Help:      "Notifications created by the fan-out stage",
		}, []string{"channel"}),
		deliveriesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyhub",
			Name:      "deliveries_sent_total",
			Help:      "Notifications delivered to an external channel",
		}, []string{"channel"}),
		deliveriesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notifyhub",
			Name:      "deliveries_failed_total",
			Help:      "Deliveries that exhausted their retries",
		}, []string{"channel"}),
		broadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "notifyhub",
			Name:      "broadcast_dropped_total",
			Help:      "Live-stream messages dropped on a full buffer",
		}),
	}

	registry.MustRegister(
		p.eventsIngested,
		p.eventsDeduplicated,
		p.notificationsTotal,
		p.deliveriesSent,
		p.deliveriesFailed,
		p.broadcastDropped,
	)
	return p
}

func (p *Pipeline) EventIngested(source string) { p.eventsIngested.WithLabelValues(source).Inc() }
func (p *Pipeline) EventDeduplicated(source string) {
	p.eventsDeduplicated.WithLabelValues(source).Inc()
}

func (p *Pipeline) NotificationCreated(channel string) {
	p.notificationsTotal.WithLabelValues(channel).Inc()
}

func (p *Pipeline) DeliverySent(channel string)   { p.deliveriesSent.WithLabelValues(channel).Inc() }
func (p *Pipeline) DeliveryFailed(channel string) { p.deliveriesFailed.WithLabelValues(channel).Inc() }

func (p *Pipeline) BroadcastDropped() { p.broadcastDropped.Inc() }

// Handler serves the registry in Prometheus text format.
func (p *Pipeline) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
