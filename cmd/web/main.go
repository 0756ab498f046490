package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/exchange-web/internal/api/http"
	"github.com/spec-kit/exchange-web/internal/api/http/handlers"
	"github.com/spec-kit/exchange-web/internal/apiclient"
	"github.com/spec-kit/exchange-web/internal/auth"
	"github.com/spec-kit/exchange-web/internal/config"
	"github.com/spec-kit/exchange-web/internal/events"
	"github.com/spec-kit/exchange-web/internal/observability"
	"github.com/spec-kit/exchange-web/internal/persistence"
	"github.com/spec-kit/exchange-web/internal/session"
	"github.com/spec-kit/exchange-web/internal/tokenstore"
	"github.com/spec-kit/exchange-web/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck
	logger = logger.With(zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	readiness := map[string]handlers.Pinger{}

	backend, closeBackend := openTokenStore(ctx, cfg, logger)
	defer closeBackend()
	readiness["token_store"] = backend

	client := apiclient.New(cfg.API, logger)
	resolver := auth.NewResolver(auth.NewJWTDecoder(), client, auth.WithLogger(logger))

	dispatcher := events.NewInMemoryDispatcher(logger)
	dispatcher.SubscribeAll(events.AuditLogger(logger))
	dispatcher.SubscribeAll(metrics.SessionEventHandler())

	registry := session.NewRegistry(session.RegistryConfig{
		MaxSessions: cfg.Session.MaxSessions,
		IdleTimeout: cfg.Session.IdleTimeout(),
	}, backend, resolver, client, dispatcher, logger)
	metrics.TrackSessions(registry.Len)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:     handlers.NewAuthHandler(logger),
		Pages:    handlers.NewPagesHandler(client, client, logger),
		Trades:   handlers.NewTradeHandler(client, logger),
		Registry: registry,
		Session:  cfg.Session,
		Metrics:  metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// openTokenStore connects the configured backend. A Postgres backend without
// a DSN falls back to memory.
func openTokenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (tokenstore.Backend, func()) {
	switch cfg.Session.StoreBackend {
	case config.StoreRedis:
		rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
		return tokenstore.NewRedisBackend(rdb.Client, cfg.Redis.KeyPrefix, cfg.Session.TokenTTL()), rdb.Close

	case config.StorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		if !pg.Configured() {
			logger.Warn("postgres token store requested without a DSN; using memory")
			return tokenstore.NewMemoryBackend(), func() {}
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		backend := tokenstore.NewPostgresBackend(pg.PoolHandle())
		sweeper := worker.NewTokenSweeper(backend, cfg.Session.TokenTTL(), cfg.Session.SweepInterval(), logger)
		go sweeper.Run(ctx)
		return backend, pg.Close
	}

	return tokenstore.NewMemoryBackend(), func() {}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
