package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifyhub/internal/api"
	"github.com/dmitrymomot/notifyhub/internal/delivery"
	"github.com/dmitrymomot/notifyhub/internal/ingest"
	"github.com/dmitrymomot/notifyhub/internal/metrics"
	"github.com/dmitrymomot/notifyhub/internal/notify"
	"github.com/dmitrymomot/notifyhub/internal/rules"
	"github.com/dmitrymomot/notifyhub/internal/store"
	"github.com/dmitrymomot/notifyhub/pkg/config"
	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/mailer"
	"github.com/dmitrymomot/notifyhub/pkg/workerpool"
)

type appConfig struct {
	Logger   logger.Config
	Poller   ingest.PollerConfig
	GitHub   ingest.GitHubConfig
	RSS      ingest.RSSConfig
	Telegram delivery.TelegramConfig
	Email    delivery.EmailConfig
	Mailer   mailer.Config
	API      api.Config
	HTTP     httpserver.Config

	// BlockingPoolSize bounds the pool shared by feed parsing and
	// outbound mail, both of which may block for seconds.
	BlockingPoolSize int `env:"BLOCKING_POOL_SIZE" envDefault:"8"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Logger, logger.WithAttr(slog.String("app", "notifyhub")))
	slog.SetDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("application terminated", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, probe, closeStore, err := setupStore(ctx, log)
	if err != nil {
		return err
	}
	defer closeStore()

	pipeline := metrics.NewPipeline()

	blockingPool := workerpool.New(cfg.BlockingPoolSize)
	defer blockingPool.Close()

	sink := notify.NewSink(log.With(logger.Component("broadcast")))
	defer sink.Close()

	sender, err := setupMailer(cfg.Mailer, log)
	if err != nil {
		return err
	}

	orchestrator := delivery.NewOrchestrator(st, []delivery.Sender{
		delivery.NewTelegram(cfg.Telegram, log.With(logger.Component("telegram"))),
		delivery.NewEmail(cfg.Email, sender, blockingPool, log.With(logger.Component("email"))),
	}, log.With(logger.Component("delivery")), delivery.WithMetrics(pipeline))

	notifier := notify.NewService(st, sink, orchestrator,
		log.With(logger.Component("notify")), notify.WithMetrics(pipeline))

	registry := ingest.NewRegistry(
		ingest.NewGenerator(),
		ingest.NewGitHub(cfg.GitHub, log.With(logger.Component("github"))),
		ingest.NewRSS(cfg.RSS, blockingPool, log.With(logger.Component("rss"))),
	)
	engine := rules.NewEngine(st, rules.WithLogger(log.With(logger.Component("rules"))))
	poller := ingest.NewPoller(cfg.Poller, st, registry, engine, notifier,
		log.With(logger.Component("ingest")), ingest.WithMetrics(pipeline))

	apiOpts := []api.Option{api.WithMetricsHandler(pipeline.Handler())}
	if probe != nil {
		apiOpts = append(apiOpts, api.WithHealthcheck(probe))
	}
	app := api.New(cfg.API, st, sink, log.With(logger.Component("api")), apiOpts...)

	server := httpserver.New(cfg.HTTP, log.With(logger.Component("http")))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return poller.Run(ctx) })
	g.Go(func() error { return server.Run(ctx, app.Router()) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// setupStore picks PostgreSQL when PG_CONN_URL is set and the in-memory
// store otherwise, so the binary runs out of the box without a database.
func setupStore(ctx context.Context, log *slog.Logger) (store.Store, func(context.Context) error, func(), error) {
	if os.Getenv("PG_CONN_URL") == "" {
		log.Warn("PG_CONN_URL is not set, falling back to the in-memory store")
		return store.NewMemory(), nil, func() {}, nil
	}

	var cfg store.PGConfig
	if err := config.Load(&cfg); err != nil {
		return nil, nil, nil, err
	}

	pool, err := store.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := store.Migrate(ctx, pool, cfg, log.With(logger.Component("migrations"))); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	return store.NewPostgres(pool), store.Healthcheck(pool), pool.Close, nil
}

// setupMailer uses Postmark when a server token is configured and a
// log-only sender otherwise.
func setupMailer(cfg mailer.Config, log *slog.Logger) (mailer.Sender, error) {
	if cfg.ServerToken == "" {
		return mailer.NewDevSender(log.With(logger.Component("mailer"))), nil
	}
	return mailer.NewPostmarkSender(cfg)
}
