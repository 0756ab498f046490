package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/exchange-web/internal/api/dto"
	"github.com/spec-kit/exchange-web/internal/domain"
	apperrors "github.com/spec-kit/exchange-web/pkg/util"
)

// MarketSource serves public market data. *apiclient.Client implements it.
type MarketSource interface {
	ListCryptos(ctx context.Context, page, limit int) (*domain.CryptoPage, error)
	SearchCryptos(ctx context.Context, query string) ([]domain.Crypto, error)
	TrendingCryptos(ctx context.Context) ([]domain.Crypto, error)
	MarketStats(ctx context.Context) (*domain.MarketStats, error)
	GetCrypto(ctx context.Context, id string) (*domain.Crypto, error)
	PriceHistory(ctx context.Context, id, timeframe string) ([]domain.PricePoint, error)
}

// AccountSource serves per-user data for a bearer token.
type AccountSource interface {
	Portfolio(ctx context.Context, token string) (*domain.Portfolio, error)
	Wallet(ctx context.Context, token string) (*domain.Wallet, error)
	Transactions(ctx context.Context, token string, page, limit int) (*domain.TransactionPage, error)
	AdminStats(ctx context.Context, token string) (*domain.AdminStats, error)
}

const (
	homeListSize         = 6
	marketPageSize       = 20
	historyPageSize      = 20
	dashboardRecentSize  = 5
	dashboardTrendingMax = 5
	defaultTimeframe     = "7d"
)

var timeframes = map[string]bool{"1d": true, "7d": true, "30d": true, "90d": true, "1y": true}

// PagesHandler renders the view models of the exchange pages.
type PagesHandler struct {
	market  MarketSource
	account AccountSource
	logger  *zap.Logger
	now     func() time.Time
}

// NewPagesHandler constructs handler.
func NewPagesHandler(market MarketSource, account AccountSource, logger *zap.Logger) *PagesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PagesHandler{market: market, account: account, logger: logger.Named("pages"), now: time.Now}
}

// Home handles GET /. Market data is optional here: failures are logged and
// the page renders without it.
func (h *PagesHandler) Home(c *fiber.Ctx) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	resp := dto.HomeResponse{TopCryptos: []dto.CryptoView{}}

	var (
		top   *domain.CryptoPage
		stats *domain.MarketStats
	)
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() (err error) {
		top, err = h.market.ListCryptos(ctx, 1, homeListSize)
		return err
	})
	g.Go(func() (err error) {
		stats, err = h.market.MarketStats(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Warn("home market data unavailable", zap.Error(err))
	} else {
		resp.TopCryptos = dto.NewCryptoViews(top.Data)
		resp.MarketStats = dto.NewMarketStatsView(*stats)
	}

	resp.Session = dto.NewSessionView(b.State.Snapshot())
	resp.Notifications = drain(b)
	return c.JSON(resp)
}

// Market handles GET /market. A non-empty q switches to search, which
// returns every match on a single page.
func (h *PagesHandler) Market(c *fiber.Ctx) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	if query := strings.TrimSpace(c.Query("q")); query != "" {
		found, err := h.market.SearchCryptos(c.UserContext(), query)
		if err != nil {
			return upstreamError(err)
		}
		return c.JSON(dto.MarketResponse{
			Cryptos:       dto.NewCryptoViews(found),
			Query:         query,
			Page:          1,
			Limit:         len(found),
			Total:         len(found),
			Session:       dto.NewSessionView(b.State.Snapshot()),
			Notifications: drain(b),
		})
	}
	page, limit := pageParams(c, marketPageSize)

	listing, err := h.market.ListCryptos(c.UserContext(), page, limit)
	if err != nil {
		return upstreamError(err)
	}
	return c.JSON(dto.MarketResponse{
		Cryptos:       dto.NewCryptoViews(listing.Data),
		Page:          page,
		Limit:         limit,
		Total:         listing.Total,
		Session:       dto.NewSessionView(b.State.Snapshot()),
		Notifications: drain(b),
	})
}

// CryptoDetail handles GET /crypto/:id.
func (h *PagesHandler) CryptoDetail(c *fiber.Ctx) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	id := c.Params("id")
	timeframe := c.Query("timeframe", defaultTimeframe)
	if !timeframes[timeframe] {
		return apperrors.NewValidationError("unsupported timeframe", map[string]any{"timeframe": timeframe})
	}

	var (
		coin    *domain.Crypto
		history []domain.PricePoint
	)
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() (err error) {
		coin, err = h.market.GetCrypto(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		history, err = h.market.PriceHistory(ctx, id, timeframe)
		return err
	})
	if err := g.Wait(); err != nil {
		return upstreamError(err)
	}

	return c.JSON(dto.CryptoDetailResponse{
		Crypto:        dto.NewCryptoView(*coin),
		Timeframe:     timeframe,
		History:       dto.NewPricePointViews(history),
		Session:       dto.NewSessionView(b.State.Snapshot()),
		Notifications: drain(b),
	})
}

// Dashboard handles GET /dashboard. All four reads must succeed.
func (h *PagesHandler) Dashboard(c *fiber.Ctx) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	snap, err := bearer(b)
	if err != nil {
		return err
	}

	var (
		portfolio *domain.Portfolio
		wallet    *domain.Wallet
		recent    *domain.TransactionPage
		trending  []domain.Crypto
	)
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() (err error) {
		portfolio, err = h.account.Portfolio(ctx, snap.Token)
		return err
	})
	g.Go(func() (err error) {
		wallet, err = h.account.Wallet(ctx, snap.Token)
		return err
	})
	g.Go(func() (err error) {
		recent, err = h.account.Transactions(ctx, snap.Token, 1, dashboardRecentSize)
		return err
	})
	g.Go(func() (err error) {
		trending, err = h.market.TrendingCryptos(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return upstreamError(err)
	}

	if len(trending) > dashboardTrendingMax {
		trending = trending[:dashboardTrendingMax]
	}
	return c.JSON(dto.DashboardResponse{
		User:               snap.User,
		Portfolio:          dto.NewPortfolioView(*portfolio),
		Wallet:             dto.NewWalletView(*wallet),
		RecentTransactions: dto.NewTransactionViews(recent.Transactions, h.now()),
		Trending:           dto.NewCryptoViews(trending),
		Notifications:      drain(b),
	})
}

// Wallet handles GET /wallet.
func (h *PagesHandler) Wallet(c *fiber.Ctx) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	snap, err := bearer(b)
	if err != nil {
		return err
	}

	wallet, err := h.account.Wallet(c.UserContext(), snap.Token)
	if err != nil {
		return upstreamError(err)
	}
	return c.JSON(dto.WalletResponse{
		Wallet:        dto.NewWalletView(*wallet),
		Notifications: drain(b),
	})
}

// Transactions handles GET /transactions.
func (h *PagesHandler) Transactions(c *fiber.Ctx) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	snap, err := bearer(b)
	if err != nil {
		return err
	}
	page, limit := pageParams(c, historyPageSize)

	history, err := h.account.Transactions(c.UserContext(), snap.Token, page, limit)
	if err != nil {
		return upstreamError(err)
	}
	return c.JSON(dto.TransactionsResponse{
		Transactions:  dto.NewTransactionViews(history.Transactions, h.now()),
		Page:          page,
		Limit:         limit,
		Total:         history.Total,
		Notifications: drain(b),
	})
}

// Admin handles GET /admin.
func (h *PagesHandler) Admin(c *fiber.Ctx) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	snap, err := bearer(b)
	if err != nil {
		return err
	}

	stats, err := h.account.AdminStats(c.UserContext(), snap.Token)
	if err != nil {
		return upstreamError(err)
	}
	resp := dto.NewAdminResponse(*stats)
	resp.Notifications = drain(b)
	return c.JSON(resp)
}

// NotFound handles GET /404 and every unmatched route.
func (h *PagesHandler) NotFound(c *fiber.Ctx) error {
	resp := fiber.Map{
		"error": fiber.Map{
			"code":    "NOT_FOUND",
			"message": "page not found",
		},
	}
	if b, ok := BrowserFromContext(c); ok {
		resp["notifications"] = drain(b)
	}
	return c.Status(fiber.StatusNotFound).JSON(resp)
}
