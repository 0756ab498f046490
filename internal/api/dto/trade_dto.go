package dto

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/exchange-web/internal/domain"
)

const defaultFundsType = "crypto"

// TradeRequest is the buy or sell form.
type TradeRequest struct {
	CryptoID string          `json:"cryptoId" form:"cryptoId"`
	Amount   decimal.Decimal `json:"amount" form:"amount"`
}

// Validate checks the form before it reaches the API.
func (r TradeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CryptoID, validation.Required),
		validation.Field(&r.Amount, validation.By(positiveAmount)),
	)
}

// Order builds the API order for side.
func (r TradeRequest) Order(side domain.TransactionType) domain.TradeOrder {
	return domain.TradeOrder{CryptoID: r.CryptoID, Amount: r.Amount, Type: side}
}

// FundsRequest is the deposit or withdrawal form.
type FundsRequest struct {
	Amount   decimal.Decimal `json:"amount" form:"amount"`
	Currency string          `json:"currency" form:"currency"`
	Address  string          `json:"address" form:"address"`
	Type     string          `json:"type" form:"type"`
}

// Validate checks the form; withdrawals also need a destination address.
func (r FundsRequest) Validate(withdrawal bool) error {
	var address []validation.Rule
	if withdrawal {
		address = append(address, validation.Required)
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Amount, validation.By(positiveAmount)),
		validation.Field(&r.Currency, validation.Required, validation.Length(2, 10)),
		validation.Field(&r.Address, address...),
		validation.Field(&r.Type, validation.In(defaultFundsType, "fiat")),
	)
}

// Transfer builds the API request, defaulting Type to crypto.
func (r FundsRequest) Transfer() domain.FundsTransfer {
	kind := r.Type
	if kind == "" {
		kind = defaultFundsType
	}
	return domain.FundsTransfer{Amount: r.Amount, Currency: r.Currency, Address: r.Address, Type: kind}
}

// ActionResponse acknowledges a trade or wallet action.
type ActionResponse struct {
	Success       bool                  `json:"success"`
	Notifications []domain.Notification `json:"notifications"`
}

func positiveAmount(value interface{}) error {
	amount, _ := value.(decimal.Decimal)
	if !amount.IsPositive() {
		return errors.New("must be greater than zero")
	}
	return nil
}
