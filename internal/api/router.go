package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/notifyhub/internal/notify"
	"github.com/dmitrymomot/notifyhub/internal/store"
)

// Config controls authentication and streaming behavior.
type Config struct {
	JWTSecret         string        `env:"JWT_SECRET,required"`
	TokenTTL          time.Duration `env:"JWT_TOKEN_TTL" envDefault:"24h"`
	HeartbeatInterval time.Duration `env:"SSE_HEARTBEAT_INTERVAL" envDefault:"30s"`
}

// API serves the HTTP surface: auth, subscription and rule management,
// notification history, the SSE stream, and monitoring.
type API struct {
	cfg            Config
	store          store.Store
	sink           *notify.Sink
	metricsHandler http.Handler
	healthcheck    func(context.Context) error
	log            *slog.Logger
}

// Option configures an API.
type Option func(*API)

// WithMetricsHandler mounts a handler on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *API) { a.metricsHandler = h }
}

// WithHealthcheck adds a dependency probe to /healthz.
func WithHealthcheck(probe func(context.Context) error) Option {
	return func(a *API) { a.healthcheck = probe }
}

// New assembles the API.
func New(cfg Config, st store.Store, sink *notify.Sink, log *slog.Logger, opts ...Option) *API {
	a := &API{
		cfg:   cfg,
		store: st,
		sink:  sink,
		log:   log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router builds the chi handler.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.handleHealthz)
	if a.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", a.metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", a.handleRegister)
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Route("/subscriptions", func(r chi.Router) {
				r.Get("/", a.handleListSubscriptions)
				r.Post("/", a.handleCreateSubscription)
				r.Put("/{subscriptionID}", a.handleUpdateSubscription)
				r.Delete("/{subscriptionID}", a.handleDeleteSubscription)

				r.Route("/{subscriptionID}/rules", func(r chi.Router) {
					r.Get("/", a.handleListRules)
					r.Post("/", a.handleCreateRule)
					r.Put("/{ruleID}", a.handleUpdateRule)
					r.Delete("/{ruleID}", a.handleDeleteRule)
				})
			})

			r.Get("/notifications", a.handleListNotifications)
			r.Get("/stream/notifications", a.handleStream)
			r.Get("/monitoring/stats", a.handleMonitoringStats)
		})
	})

	return r
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if a.healthcheck != nil {
		if err := a.healthcheck(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "unhealthy")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
