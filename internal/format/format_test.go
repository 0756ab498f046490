package format

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/exchange-web/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		decimals int32
		want     string
	}{
		{"0", "USD", 2, "$0.00"},
		{"999.999", "USD", 2, "$1,000.00"},
		{"1234567.891", "USD", 2, "$1,234,567.89"},
		{"-42.5", "usd", 2, "-$42.50"},
		{"1500", "EUR", 0, "€1,500"},
		{"10", "CHF", 2, "CHF 10.00"},
		{"123", "", 2, "$123.00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Currency(d(tt.amount), tt.currency, tt.decimals), tt.amount)
	}
	assert.Equal(t, "$64,000.12", USD(d("64000.12")))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, "+2.35%", Percentage(d("2.345"), 2))
	assert.Equal(t, "+0.00%", Percentage(decimal.Zero, 2))
	assert.Equal(t, "-1.20%", Percentage(d("-1.2"), 2))
	assert.Equal(t, "+7%", Percentage(d("7"), 0))
}

func TestCryptoAmount(t *testing.T) {
	assert.Equal(t, "0.50000000 BTC", CryptoAmount(d("0.5"), "BTC", 8))
	assert.Equal(t, "12.35 ETH", CryptoAmount(d("12.345"), "ETH", 2))
}

func TestLargeNumber(t *testing.T) {
	tests := map[string]string{
		"999":           "999",
		"1000":          "1.0K",
		"1250":          "1.3K",
		"2500000":       "2.5M",
		"7100000000":    "7.1B",
		"1200000000000": "1.2T",
	}
	for in, want := range tests {
		assert.Equal(t, want, LargeNumber(d(in)), in)
	}
}

func TestPrice(t *testing.T) {
	assert.Equal(t, "64000.50", Price(d("64000.5")))
	assert.Equal(t, "1.00", Price(d("1")))
	assert.Equal(t, "0.0500", Price(d("0.05")))
	assert.Equal(t, "0.0100", Price(d("0.01")))
	assert.Equal(t, "0.00001234", Price(d("0.00001234")))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "Just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{time.Hour, "1 hour ago"},
		{23 * time.Hour, "23 hours ago"},
		{48 * time.Hour, "2 days ago"},
		{31 * 24 * time.Hour, "1 month ago"},
		{200 * 24 * time.Hour, "6 months ago"},
		{400 * 24 * time.Hour, "1 year ago"},
		{800 * 24 * time.Hour, "2 years ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelativeTime(now.Add(-tt.ago), now), tt.ago.String())
	}
	assert.Equal(t, "Just now", RelativeTime(now.Add(time.Hour), now))
}

func TestDate(t *testing.T) {
	assert.Equal(t, "Jan 5, 2026, 03:04 PM", Date(time.Date(2026, 1, 5, 15, 4, 0, 0, time.UTC)))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 20))
	assert.Equal(t, "0x1234...", Truncate("0x123456789", 6))
	assert.Equal(t, "ééé...", Truncate("éééé", 3))
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Completed", TransactionStatus(domain.TransactionCompleted))
	assert.Equal(t, "on-hold", TransactionStatus("on-hold"))
	assert.Equal(t, "Withdrawal", TransactionType(domain.TransactionWithdrawal))
	assert.Equal(t, "stake", TransactionType("stake"))
}

func TestPriceChange(t *testing.T) {
	assert.Equal(t, Up, PriceChange(d("0.01")))
	assert.Equal(t, Down, PriceChange(d("-3")))
	assert.Equal(t, Flat, PriceChange(decimal.Zero))
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, "BTC", Symbol("btc"))
}
