package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/exchange-web/internal/api/http/handlers"
	"github.com/spec-kit/exchange-web/internal/config"
	"github.com/spec-kit/exchange-web/internal/guard"
	"github.com/spec-kit/exchange-web/internal/observability"
	"github.com/spec-kit/exchange-web/internal/session"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Pages    *handlers.PagesHandler
	Trades   *handlers.TradeHandler
	Registry *session.Registry
	Session  config.SessionConfig
	Metrics  *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	guardOpts := []guard.Option{
		guard.WithGrace(cfg.Session.AuthGrace()),
		guard.WithObserver(func(name string, d guard.Decision) {
			cfg.Metrics.RecordGuard(name, d.Kind.String())
		}),
	}
	requireAuth := guard.RequireAuth(guardLookup, guardOpts...)
	requireAdmin := guard.RequireAdmin(guardLookup, guardOpts...)

	web := app.Group("", SessionMiddleware(cfg.Registry, cfg.Session))

	web.Get("/", cfg.Pages.Home)
	web.Get("/login", cfg.Auth.LoginForm)
	web.Post("/login", cfg.Auth.Login)
	web.Get("/register", cfg.Auth.RegisterForm)
	web.Post("/register", cfg.Auth.Register)
	web.Post("/logout", cfg.Auth.Logout)
	web.Get("/session", cfg.Auth.Session)

	web.Get("/market", cfg.Pages.Market)
	web.Get("/crypto/:id", cfg.Pages.CryptoDetail)

	web.Get("/dashboard", requireAuth, cfg.Pages.Dashboard)
	web.Get("/wallet", requireAuth, cfg.Pages.Wallet)
	web.Get("/transactions", requireAuth, cfg.Pages.Transactions)
	web.Get("/admin", requireAdmin, cfg.Pages.Admin)

	web.Post("/transactions/buy", requireAuth, cfg.Trades.Buy)
	web.Post("/transactions/sell", requireAuth, cfg.Trades.Sell)
	web.Post("/wallet/deposit", requireAuth, cfg.Trades.Deposit)
	web.Post("/wallet/withdraw", requireAuth, cfg.Trades.Withdraw)

	web.Get("/404", cfg.Pages.NotFound)
	web.Use(cfg.Pages.NotFound)
}
