// Package apiclient talks to the remote exchange API. It is the
// authentication collaborator of the session core and the data source of
// the page handlers; it holds no state of its own.
package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/exchange-web/internal/auth"
	"github.com/spec-kit/exchange-web/internal/config"
	"github.com/spec-kit/exchange-web/internal/domain"
)

// ErrUnauthorized is returned when the API rejects the bearer token.
var ErrUnauthorized = errors.New("apiclient: unauthorized")

// APIError is a non-2xx response from the exchange API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("exchange api: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("exchange api: %d", e.Status)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// errorBody is the error envelope the exchange API answers with.
type errorBody struct {
	Message string `json:"message"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (b *errorBody) text() string {
	if b == nil {
		return ""
	}
	if b.Message != "" {
		return b.Message
	}
	return b.Error.Message
}

// Client is a resty-backed exchange API client.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// New builds a client for cfg.BaseURL.
func New(cfg config.APIConfig, logger *zap.Logger) *Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout()).
		SetHeader("Accept", "application/json")
	return NewWithResty(rc, logger)
}

// NewWithResty wraps a preconfigured resty client.
func NewWithResty(rc *resty.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: rc, logger: logger.Named("apiclient")}
}

// Login posts credentials to /auth/login.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	var out domain.LoginResult
	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(creds).
		SetResult(&out).
		SetError(&apiErr).
		Post("/auth/login")
	if err != nil {
		return nil, &auth.AuthError{Err: fmt.Errorf("post login: %w", err)}
	}
	if resp.IsError() {
		return nil, &auth.AuthError{Message: apiErr.text(), Status: resp.StatusCode()}
	}
	return &out, nil
}

// Register posts a new account to /auth/register.
func (c *Client) Register(ctx context.Context, data domain.Registration) error {
	var apiErr errorBody
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"name":     data.Name,
			"email":    data.Email,
			"password": data.Password,
		}).
		SetError(&apiErr).
		Post("/auth/register")
	if err != nil {
		return &auth.AuthError{Err: fmt.Errorf("post register: %w", err)}
	}
	if resp.IsError() {
		return &auth.AuthError{Message: apiErr.text(), Status: resp.StatusCode()}
	}
	return nil
}

// CurrentUser resolves token to its user via /auth/me.
func (c *Client) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	var out domain.User
	if err := c.get(ctx, token, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the API to drop the token. Callers ignore the result.
func (c *Client) Logout(ctx context.Context, token string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		Post("/auth/logout")
	if err != nil {
		return fmt.Errorf("post logout: %w", err)
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode()}
	}
	return nil
}

// ListCryptos returns one page of the market listing.
func (c *Client) ListCryptos(ctx context.Context, page, limit int) (*domain.CryptoPage, error) {
	var out domain.CryptoPage
	query := map[string]string{"page": strconv.Itoa(page), "limit": strconv.Itoa(limit)}
	if err := c.get(ctx, "", "/crypto", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TrendingCryptos returns the trending assets.
func (c *Client) TrendingCryptos(ctx context.Context) ([]domain.Crypto, error) {
	var out []domain.Crypto
	if err := c.get(ctx, "", "/crypto/trending", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarketStats returns the market-wide summary.
func (c *Client) MarketStats(ctx context.Context) (*domain.MarketStats, error) {
	var out domain.MarketStats
	if err := c.get(ctx, "", "/crypto/market-stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchCryptos returns the assets matching query.
func (c *Client) SearchCryptos(ctx context.Context, query string) ([]domain.Crypto, error) {
	var out []domain.Crypto
	if err := c.get(ctx, "", "/crypto/search", map[string]string{"q": query}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCrypto returns one asset.
func (c *Client) GetCrypto(ctx context.Context, id string) (*domain.Crypto, error) {
	var out domain.Crypto
	req := c.http.R().SetPathParam("id", id)
	if err := c.do(ctx, req, resty.MethodGet, "", "/crypto/{id}", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PriceHistory returns the price series of an asset for timeframe (e.g. 7d).
func (c *Client) PriceHistory(ctx context.Context, id, timeframe string) ([]domain.PricePoint, error) {
	var out []domain.PricePoint
	req := c.http.R().
		SetPathParam("id", id).
		SetQueryParam("timeframe", timeframe)
	if err := c.do(ctx, req, resty.MethodGet, "", "/crypto/{id}/history", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Portfolio returns the user's aggregated holdings.
func (c *Client) Portfolio(ctx context.Context, token string) (*domain.Portfolio, error) {
	var out domain.Portfolio
	if err := c.get(ctx, token, "/users/portfolio", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Wallet returns the user's balances.
func (c *Client) Wallet(ctx context.Context, token string) (*domain.Wallet, error) {
	var out domain.Wallet
	if err := c.get(ctx, token, "/wallet/balance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transactions returns one page of the user's history.
func (c *Client) Transactions(ctx context.Context, token string, page, limit int) (*domain.TransactionPage, error) {
	var out domain.TransactionPage
	query := map[string]string{"page": strconv.Itoa(page), "limit": strconv.Itoa(limit)}
	if err := c.get(ctx, token, "/transactions", query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdminStats returns the exchange-wide overview.
func (c *Client) AdminStats(ctx context.Context, token string) (*domain.AdminStats, error) {
	var out domain.AdminStats
	if err := c.get(ctx, token, "/admin/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Buy places a buy order.
func (c *Client) Buy(ctx context.Context, token string, order domain.TradeOrder) error {
	return c.post(ctx, token, "/transactions/buy", tradeBody(order))
}

// Sell places a sell order.
func (c *Client) Sell(ctx context.Context, token string, order domain.TradeOrder) error {
	return c.post(ctx, token, "/transactions/sell", tradeBody(order))
}

// Deposit starts a deposit into the wallet.
func (c *Client) Deposit(ctx context.Context, token string, transfer domain.FundsTransfer) error {
	return c.post(ctx, token, "/wallet/deposit", fundsBody(transfer))
}

// Withdraw starts a withdrawal to transfer.Address.
func (c *Client) Withdraw(ctx context.Context, token string, transfer domain.FundsTransfer) error {
	return c.post(ctx, token, "/wallet/withdraw", fundsBody(transfer))
}

// The exchange API takes amounts as JSON numbers.
func tradeBody(order domain.TradeOrder) map[string]any {
	return map[string]any{
		"cryptoId": order.CryptoID,
		"amount":   order.Amount.InexactFloat64(),
		"type":     order.Type,
	}
}

func fundsBody(transfer domain.FundsTransfer) map[string]any {
	body := map[string]any{
		"amount":   transfer.Amount.InexactFloat64(),
		"currency": transfer.Currency,
		"type":     transfer.Type,
	}
	if transfer.Address != "" {
		body["address"] = transfer.Address
	}
	return body
}

func (c *Client) get(ctx context.Context, token, path string, query map[string]string, out any) error {
	req := c.http.R()
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	return c.do(ctx, req, resty.MethodGet, token, path, out)
}

func (c *Client) post(ctx context.Context, token, path string, body any) error {
	return c.do(ctx, c.http.R().SetBody(body), resty.MethodPost, token, path, nil)
}

func (c *Client) do(ctx context.Context, req *resty.Request, method, token, path string, out any) error {
	var apiErr errorBody
	req.SetContext(ctx).SetError(&apiErr)
	if out != nil {
		req.SetResult(out)
	}
	if token != "" {
		req.SetAuthToken(token)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", strings.ToLower(method), path, err)
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Message: apiErr.text()}
	}
	return nil
}
