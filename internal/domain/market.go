package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Crypto is a listed asset with its market snapshot.
type Crypto struct {
	ID                string          `json:"id"`
	Symbol            string          `json:"symbol"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	PriceChange24h    decimal.Decimal `json:"priceChange24h"`
	MarketCap         decimal.Decimal `json:"marketCap"`
	Volume24h         decimal.Decimal `json:"volume24h"`
	CirculatingSupply decimal.Decimal `json:"circulatingSupply"`
}

// MarketStats is the market-wide summary shown on the landing page.
type MarketStats struct {
	TotalMarketCap         decimal.Decimal `json:"totalMarketCap"`
	Total24hVolume         decimal.Decimal `json:"total24hVolume"`
	ActiveCryptocurrencies int64           `json:"activeCryptocurrencies"`
	BTCDominance           decimal.Decimal `json:"btcDominance"`
}

// PricePoint is one sample of a price history series.
type PricePoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

// CryptoPage is a paginated market listing.
type CryptoPage struct {
	Data  []Crypto `json:"data"`
	Page  int      `json:"page"`
	Limit int      `json:"limit"`
	Total int      `json:"total"`
}

// TransactionType enumerates ledger movement kinds.
type TransactionType string

const (
	TransactionBuy        TransactionType = "buy"
	TransactionSell       TransactionType = "sell"
	TransactionDeposit    TransactionType = "deposit"
	TransactionWithdrawal TransactionType = "withdrawal"
)

// TransactionStatus enumerates ledger movement states.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionCancelled TransactionStatus = "cancelled"
)

// Transaction is one entry of the user's history.
type Transaction struct {
	ID        string            `json:"id"`
	Type      TransactionType   `json:"type"`
	Status    TransactionStatus `json:"status"`
	CryptoID  string            `json:"cryptoId"`
	Symbol    string            `json:"symbol"`
	Amount    decimal.Decimal   `json:"amount"`
	Price     decimal.Decimal   `json:"price"`
	Total     decimal.Decimal   `json:"total"`
	CreatedAt time.Time         `json:"createdAt"`
}

// TradeOrder asks the exchange to buy or sell Amount units of an asset.
type TradeOrder struct {
	CryptoID string
	Amount   decimal.Decimal
	Type     TransactionType
}

// FundsTransfer moves funds into or out of the wallet. Address is the
// destination of a withdrawal; Type is "crypto" or "fiat".
type FundsTransfer struct {
	Amount   decimal.Decimal
	Currency string
	Address  string
	Type     string
}

// TransactionPage is a paginated transaction history.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Page         int           `json:"page"`
	Limit        int           `json:"limit"`
	Total        int           `json:"total"`
}

// Holding is a single asset balance inside a wallet.
type Holding struct {
	CryptoID string          `json:"cryptoId"`
	Symbol   string          `json:"symbol"`
	Amount   decimal.Decimal `json:"amount"`
	Value    decimal.Decimal `json:"value"`
}

// Wallet is the user's balances as reported by the exchange.
type Wallet struct {
	FiatBalance decimal.Decimal `json:"fiatBalance"`
	Currency    string          `json:"currency"`
	Holdings    []Holding       `json:"holdings"`
}

// TotalValue sums fiat balance and holding values.
func (w Wallet) TotalValue() decimal.Decimal {
	total := w.FiatBalance
	for _, h := range w.Holdings {
		total = total.Add(h.Value)
	}
	return total
}

// Portfolio is the user's aggregated position across assets.
type Portfolio struct {
	TotalValue    decimal.Decimal `json:"totalValue"`
	Change24h     decimal.Decimal `json:"change24h"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Holdings      []Holding       `json:"holdings"`
}

// AdminStats is the exchange-wide overview shown to administrators.
type AdminStats struct {
	TotalUsers          int             `json:"totalUsers"`
	ActiveUsers         int             `json:"activeUsers"`
	TotalTransactions   int             `json:"totalTransactions"`
	TotalVolume         decimal.Decimal `json:"totalVolume"`
	PendingTransactions int             `json:"pendingTransactions"`
	Revenue             decimal.Decimal `json:"revenue"`
}
