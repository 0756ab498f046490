package dto

import (
	"time"

	"github.com/spec-kit/exchange-web/internal/domain"
	"github.com/spec-kit/exchange-web/internal/format"
)

// TransactionView is a history row with display strings.
type TransactionView struct {
	ID          string                   `json:"id"`
	ShortID     string                   `json:"shortId"`
	Type        domain.TransactionType   `json:"type"`
	TypeLabel   string                   `json:"typeLabel"`
	Status      domain.TransactionStatus `json:"status"`
	StatusLabel string                   `json:"statusLabel"`
	Amount      string                   `json:"amount"`
	Price       string                   `json:"price"`
	Total       string                   `json:"total"`
	Date        string                   `json:"date"`
	Ago         string                   `json:"ago"`
}

const shortIDLength = 8

// NewTransactionViews formats transactions relative to now.
func NewTransactionViews(in []domain.Transaction, now time.Time) []TransactionView {
	out := make([]TransactionView, 0, len(in))
	for _, tx := range in {
		out = append(out, TransactionView{
			ID:          tx.ID,
			ShortID:     format.Truncate(tx.ID, shortIDLength),
			Type:        tx.Type,
			TypeLabel:   format.TransactionType(tx.Type),
			Status:      tx.Status,
			StatusLabel: format.TransactionStatus(tx.Status),
			Amount:      format.CryptoAmount(tx.Amount, format.Symbol(tx.Symbol), 8),
			Price:       format.USD(tx.Price),
			Total:       format.USD(tx.Total),
			Date:        format.Date(tx.CreatedAt),
			Ago:         format.RelativeTime(tx.CreatedAt, now),
		})
	}
	return out
}

// HoldingView is one asset balance.
type HoldingView struct {
	CryptoID string `json:"cryptoId"`
	Symbol   string `json:"symbol"`
	Amount   string `json:"amount"`
	Value    string `json:"value"`
}

// NewHoldingViews formats holdings.
func NewHoldingViews(in []domain.Holding) []HoldingView {
	out := make([]HoldingView, 0, len(in))
	for _, h := range in {
		symbol := format.Symbol(h.Symbol)
		out = append(out, HoldingView{
			CryptoID: h.CryptoID,
			Symbol:   symbol,
			Amount:   format.CryptoAmount(h.Amount, symbol, 8),
			Value:    format.USD(h.Value),
		})
	}
	return out
}

// WalletView is the wallet page body.
type WalletView struct {
	FiatBalance string        `json:"fiatBalance"`
	TotalValue  string        `json:"totalValue"`
	Holdings    []HoldingView `json:"holdings"`
}

// NewWalletView formats w in its own currency.
func NewWalletView(w domain.Wallet) WalletView {
	return WalletView{
		FiatBalance: format.Currency(w.FiatBalance, w.Currency, 2),
		TotalValue:  format.Currency(w.TotalValue(), w.Currency, 2),
		Holdings:    NewHoldingViews(w.Holdings),
	}
}

// PortfolioView summarises the user's position.
type PortfolioView struct {
	TotalValue    string           `json:"totalValue"`
	Change24h     string           `json:"change24h"`
	ChangePercent string           `json:"changePercent"`
	Direction     format.Direction `json:"direction"`
	Holdings      []HoldingView    `json:"holdings"`
}

// NewPortfolioView formats p.
func NewPortfolioView(p domain.Portfolio) PortfolioView {
	return PortfolioView{
		TotalValue:    format.USD(p.TotalValue),
		Change24h:     format.USD(p.Change24h),
		ChangePercent: format.Percentage(p.ChangePercent, 2),
		Direction:     format.PriceChange(p.Change24h),
		Holdings:      NewHoldingViews(p.Holdings),
	}
}

// DashboardResponse is the signed-in landing page.
type DashboardResponse struct {
	User               *domain.User          `json:"user"`
	Portfolio          PortfolioView         `json:"portfolio"`
	Wallet             WalletView            `json:"wallet"`
	RecentTransactions []TransactionView     `json:"recentTransactions"`
	Trending           []CryptoView          `json:"trending"`
	Notifications      []domain.Notification `json:"notifications"`
}

// WalletResponse is the wallet page.
type WalletResponse struct {
	Wallet        WalletView            `json:"wallet"`
	Notifications []domain.Notification `json:"notifications"`
}

// TransactionsResponse is one page of history.
type TransactionsResponse struct {
	Transactions  []TransactionView     `json:"transactions"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
	Total         int                   `json:"total"`
	Notifications []domain.Notification `json:"notifications"`
}

// AdminResponse is the admin overview.
type AdminResponse struct {
	TotalUsers          int                   `json:"totalUsers"`
	ActiveUsers         int                   `json:"activeUsers"`
	TotalTransactions   int                   `json:"totalTransactions"`
	TotalVolume         string                `json:"totalVolume"`
	PendingTransactions int                   `json:"pendingTransactions"`
	Revenue             string                `json:"revenue"`
	Notifications       []domain.Notification `json:"notifications"`
}

// NewAdminResponse formats s.
func NewAdminResponse(s domain.AdminStats) AdminResponse {
	return AdminResponse{
		TotalUsers:          s.TotalUsers,
		ActiveUsers:         s.ActiveUsers,
		TotalTransactions:   s.TotalTransactions,
		TotalVolume:         format.USD(s.TotalVolume),
		PendingTransactions: s.PendingTransactions,
		Revenue:             format.USD(s.Revenue),
	}
}
