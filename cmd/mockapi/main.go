package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/exchange-web/internal/api/http/handlers"
	"github.com/spec-kit/exchange-web/internal/config"
	"github.com/spec-kit/exchange-web/internal/mockapi"
	"github.com/spec-kit/exchange-web/internal/observability"
	"github.com/spec-kit/exchange-web/internal/persistence"
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
	logger = logger.With(zap.String("service", "mockapi"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	readiness := map[string]handlers.Pinger{}
	accounts := mockapi.NewMemoryAccountRepository()
	if pg.Configured() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		accounts = mockapi.NewPostgresAccountRepository(pg.PoolHandle())
		readiness["postgres"] = pg
	}

	svc := mockapi.NewService(cfg.Auth, accounts, logger)
	if err := svc.SeedAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		logger.Fatal("failed to seed admin", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{ErrorHandler: mockapi.ErrorHandler})
	app.Use(observability.RequestLogger(logger, metrics))

	health := handlers.NewHealthHandler("mockapi", cfg.App.Version, readiness)
	app.Get("/health/live", health.Live)
	app.Get("/health/ready", health.Ready)
	mockapi.NewHandler(svc).RegisterRoutes(app.Group("/api"))

	go func() {
		if err := app.Listen(cfg.Auth.MockAPIAddr); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
