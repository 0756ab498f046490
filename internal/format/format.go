// Package format renders exchange amounts, prices and times for view models.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/exchange-web/internal/domain"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
	trillion = decimal.NewFromInt(1_000_000_000_000)
	cent     = decimal.New(1, -2)
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

// Currency formats amount as en-US money, e.g. -$1,234.50.
// Unknown currency codes are written as a prefix: "CHF 10.00".
func Currency(amount decimal.Decimal, currency string, decimals int32) string {
	code := strings.ToUpper(currency)
	if code == "" {
		code = "USD"
	}
	prefix, ok := currencySymbols[code]
	if !ok {
		prefix = code + " "
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	return sign + prefix + group(amount.StringFixed(decimals))
}

// USD is Currency with the dashboard defaults.
func USD(amount decimal.Decimal) string {
	return Currency(amount, "USD", 2)
}

// Percentage renders a signed percentage; zero counts as positive.
func Percentage(value decimal.Decimal, decimals int32) string {
	sign := ""
	if !value.IsNegative() {
		sign = "+"
	}
	return sign + value.StringFixed(decimals) + "%"
}

// CryptoAmount renders amount with a fixed number of decimals and its symbol.
func CryptoAmount(amount decimal.Decimal, symbol string, decimals int32) string {
	return amount.StringFixed(decimals) + " " + symbol
}

// LargeNumber abbreviates with K, M, B or T and one decimal.
func LargeNumber(num decimal.Decimal) string {
	switch {
	case num.GreaterThanOrEqual(trillion):
		return num.Div(trillion).StringFixed(1) + "T"
	case num.GreaterThanOrEqual(billion):
		return num.Div(billion).StringFixed(1) + "B"
	case num.GreaterThanOrEqual(million):
		return num.Div(million).StringFixed(1) + "M"
	case num.GreaterThanOrEqual(thousand):
		return num.Div(thousand).StringFixed(1) + "K"
	}
	return num.String()
}

// Price picks the precision from the magnitude: 2 decimals from 1 up,
// 4 from one cent up, 8 below.
func Price(price decimal.Decimal) string {
	switch {
	case price.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return price.StringFixed(2)
	case price.GreaterThanOrEqual(cent):
		return price.StringFixed(4)
	}
	return price.StringFixed(8)
}

// Date renders t like "Jan 2, 2026, 03:04 PM".
func Date(t time.Time) string {
	return t.Format("Jan 2, 2006, 03:04 PM")
}

// RelativeTime describes how long before now t was. Months are 30 days and
// years 12 of those.
func RelativeTime(t, now time.Time) string {
	seconds := int64(now.Sub(t) / time.Second)
	if seconds < 60 {
		return "Just now"
	}
	minutes := seconds / 60
	if minutes < 60 {
		return ago(minutes, "minute")
	}
	hours := minutes / 60
	if hours < 24 {
		return ago(hours, "hour")
	}
	days := hours / 24
	if days < 30 {
		return ago(days, "day")
	}
	months := days / 30
	if months < 12 {
		return ago(months, "month")
	}
	return ago(months/12, "year")
}

// Truncate cuts s to max runes and appends an ellipsis when it was longer.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// TransactionStatus returns the display label of a status; unknown values
// pass through.
func TransactionStatus(status domain.TransactionStatus) string {
	switch status {
	case domain.TransactionPending:
		return "Pending"
	case domain.TransactionCompleted:
		return "Completed"
	case domain.TransactionFailed:
		return "Failed"
	case domain.TransactionCancelled:
		return "Cancelled"
	}
	return string(status)
}

// TransactionType returns the display label of a type; unknown values pass
// through.
func TransactionType(typ domain.TransactionType) string {
	switch typ {
	case domain.TransactionBuy:
		return "Buy"
	case domain.TransactionSell:
		return "Sell"
	case domain.TransactionDeposit:
		return "Deposit"
	case domain.TransactionWithdrawal:
		return "Withdrawal"
	}
	return string(typ)
}

// Direction classifies a price change.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	Flat Direction = "flat"
)

// PriceChange returns the direction of change.
func PriceChange(change decimal.Decimal) Direction {
	switch change.Sign() {
	case 1:
		return Up
	case -1:
		return Down
	}
	return Flat
}

// Symbol upper-cases a ticker.
func Symbol(symbol string) string {
	return strings.ToUpper(symbol)
}

func ago(n int64, unit string) string {
	if n > 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}

// group inserts thousands separators into a non-negative fixed-point string.
func group(fixed string) string {
	whole, frac, hasFrac := strings.Cut(fixed, ".")
	if len(whole) <= 3 {
		return fixed
	}

	var b strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
