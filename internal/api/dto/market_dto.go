package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/exchange-web/internal/domain"
	"github.com/spec-kit/exchange-web/internal/format"
)

// CryptoView is a listed asset with display strings.
type CryptoView struct {
	ID        string           `json:"id"`
	Symbol    string           `json:"symbol"`
	Name      string           `json:"name"`
	Price     string           `json:"price"`
	PriceUSD  string           `json:"priceUsd"`
	Change24h string           `json:"change24h"`
	Direction format.Direction `json:"direction"`
	MarketCap string           `json:"marketCap"`
	Volume24h string           `json:"volume24h"`
	Supply    string           `json:"circulatingSupply"`
}

// NewCryptoView formats c.
func NewCryptoView(c domain.Crypto) CryptoView {
	return CryptoView{
		ID:        c.ID,
		Symbol:    format.Symbol(c.Symbol),
		Name:      c.Name,
		Price:     format.Price(c.Price),
		PriceUSD:  format.USD(c.Price),
		Change24h: format.Percentage(c.PriceChange24h, 2),
		Direction: format.PriceChange(c.PriceChange24h),
		MarketCap: format.LargeNumber(c.MarketCap),
		Volume24h: format.LargeNumber(c.Volume24h),
		Supply:    format.LargeNumber(c.CirculatingSupply),
	}
}

// NewCryptoViews formats a slice, never returning nil.
func NewCryptoViews(in []domain.Crypto) []CryptoView {
	out := make([]CryptoView, 0, len(in))
	for _, c := range in {
		out = append(out, NewCryptoView(c))
	}
	return out
}

// MarketResponse is one page of the market listing.
type MarketResponse struct {
	Cryptos       []CryptoView          `json:"cryptos"`
	Query         string                `json:"query,omitempty"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
	Total         int                   `json:"total"`
	Session       SessionView           `json:"session"`
	Notifications []domain.Notification `json:"notifications"`
}

// PricePointView is a chart sample.
type PricePointView struct {
	Timestamp time.Time `json:"timestamp"`
	Price     string    `json:"price"`
}

// CryptoDetailResponse is the per-asset page.
type CryptoDetailResponse struct {
	Crypto        CryptoView            `json:"crypto"`
	Timeframe     string                `json:"timeframe"`
	History       []PricePointView      `json:"history"`
	Session       SessionView           `json:"session"`
	Notifications []domain.Notification `json:"notifications"`
}

// NewPricePointViews formats a price series.
func NewPricePointViews(in []domain.PricePoint) []PricePointView {
	out := make([]PricePointView, 0, len(in))
	for _, p := range in {
		out = append(out, PricePointView{Timestamp: p.Timestamp, Price: format.Price(p.Price)})
	}
	return out
}

// MarketStatsView is the landing page summary.
type MarketStatsView struct {
	TotalMarketCap         string `json:"totalMarketCap"`
	Total24hVolume         string `json:"total24hVolume"`
	ActiveCryptocurrencies string `json:"activeCryptocurrencies"`
	BTCDominance           string `json:"btcDominance"`
}

// NewMarketStatsView formats s.
func NewMarketStatsView(s domain.MarketStats) *MarketStatsView {
	return &MarketStatsView{
		TotalMarketCap:         format.USD(s.TotalMarketCap),
		Total24hVolume:         format.USD(s.Total24hVolume),
		ActiveCryptocurrencies: format.LargeNumber(decimal.NewFromInt(s.ActiveCryptocurrencies)),
		BTCDominance:           "BTC " + format.Percentage(s.BTCDominance, 2),
	}
}

// HomeResponse is the landing page. Missing market data leaves the
// corresponding fields empty.
type HomeResponse struct {
	TopCryptos    []CryptoView          `json:"topCryptos"`
	MarketStats   *MarketStatsView      `json:"marketStats"`
	Session       SessionView           `json:"session"`
	Notifications []domain.Notification `json:"notifications"`
}
