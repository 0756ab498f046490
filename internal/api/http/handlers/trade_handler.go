package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/exchange-web/internal/api/dto"
	"github.com/spec-kit/exchange-web/internal/apiclient"
	"github.com/spec-kit/exchange-web/internal/domain"
	"github.com/spec-kit/exchange-web/internal/session"
	apperrors "github.com/spec-kit/exchange-web/pkg/util"
)

// TradeSource places orders and moves funds for a bearer token.
// *apiclient.Client implements it.
type TradeSource interface {
	Buy(ctx context.Context, token string, order domain.TradeOrder) error
	Sell(ctx context.Context, token string, order domain.TradeOrder) error
	Deposit(ctx context.Context, token string, transfer domain.FundsTransfer) error
	Withdraw(ctx context.Context, token string, transfer domain.FundsTransfer) error
}

// User-facing outcomes of trade and wallet actions.
const (
	MsgBuyPlaced           = "Buy order placed successfully!"
	MsgSellPlaced          = "Sell order placed successfully!"
	MsgTradeFailed         = "Trade failed"
	MsgDepositInitiated    = "Deposit initiated successfully!"
	MsgDepositFailed       = "Deposit failed"
	MsgWithdrawalInitiated = "Withdrawal initiated successfully!"
	MsgWithdrawalFailed    = "Withdrawal failed"
	MsgFillAllFields       = "Please fill in all fields"
	MsgEnterAmount         = "Please enter an amount"
)

// TradeHandler serves the order and wallet actions of a signed-in browser.
type TradeHandler struct {
	trades TradeSource
	logger *zap.Logger
}

// NewTradeHandler constructs handler.
func NewTradeHandler(trades TradeSource, logger *zap.Logger) *TradeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TradeHandler{trades: trades, logger: logger.Named("trade_handler")}
}

// Buy handles POST /transactions/buy.
func (h *TradeHandler) Buy(c *fiber.Ctx) error {
	return h.trade(c, domain.TransactionBuy, h.trades.Buy, MsgBuyPlaced)
}

// Sell handles POST /transactions/sell.
func (h *TradeHandler) Sell(c *fiber.Ctx) error {
	return h.trade(c, domain.TransactionSell, h.trades.Sell, MsgSellPlaced)
}

// Deposit handles POST /wallet/deposit.
func (h *TradeHandler) Deposit(c *fiber.Ctx) error {
	return h.funds(c, false, h.trades.Deposit, MsgDepositInitiated, MsgDepositFailed)
}

// Withdraw handles POST /wallet/withdraw.
func (h *TradeHandler) Withdraw(c *fiber.Ctx) error {
	return h.funds(c, true, h.trades.Withdraw, MsgWithdrawalInitiated, MsgWithdrawalFailed)
}

type orderFunc func(ctx context.Context, token string, order domain.TradeOrder) error

type transferFunc func(ctx context.Context, token string, transfer domain.FundsTransfer) error

func (h *TradeHandler) trade(c *fiber.Ctx, side domain.TransactionType, place orderFunc, success string) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	snap, err := bearer(b)
	if err != nil {
		return err
	}
	var req dto.TradeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return h.invalid(c, b, err, MsgFillAllFields)
	}

	if err := place(c.UserContext(), snap.Token, req.Order(side)); err != nil {
		return h.rejected(c, b, err, MsgTradeFailed)
	}
	h.logger.Info("order placed", zap.String("side", string(side)), zap.String("crypto_id", req.CryptoID))
	return h.done(c, b, success)
}

func (h *TradeHandler) funds(c *fiber.Ctx, withdrawal bool, move transferFunc, success, failure string) error {
	b, err := browser(c)
	if err != nil {
		return err
	}
	snap, err := bearer(b)
	if err != nil {
		return err
	}
	var req dto.FundsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(withdrawal); err != nil {
		message := MsgFillAllFields
		if !req.Amount.IsPositive() {
			message = MsgEnterAmount
		}
		return h.invalid(c, b, err, message)
	}

	if err := move(c.UserContext(), snap.Token, req.Transfer()); err != nil {
		return h.rejected(c, b, err, failure)
	}
	h.logger.Info("funds transfer initiated", zap.Bool("withdrawal", withdrawal), zap.String("currency", req.Currency))
	return h.done(c, b, success)
}

func (h *TradeHandler) done(c *fiber.Ctx, b *session.Browser, message string) error {
	b.Notices.Notify(domain.Notification{Level: domain.NotificationSuccess, Message: message})
	return c.JSON(dto.ActionResponse{Success: true, Notifications: drain(b)})
}

func (h *TradeHandler) invalid(c *fiber.Ctx, b *session.Browser, err error, message string) error {
	b.Notices.Notify(domain.Notification{Level: domain.NotificationError, Message: message})
	return c.Status(http.StatusBadRequest).JSON(dto.FailureResponse{
		Errors:        session.FieldErrors(err),
		Notifications: drain(b),
	})
}

// rejected surfaces the exchange's own message when it gave one. A rejected
// bearer token goes to the error middleware like any other 401.
func (h *TradeHandler) rejected(c *fiber.Ctx, b *session.Browser, err error, fallback string) error {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return upstreamError(err)
	}
	status := http.StatusBadGateway
	message := fallback
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status < http.StatusInternalServerError {
			status = http.StatusUnprocessableEntity
		}
		if apiErr.Message != "" {
			message = apiErr.Message
		}
	}
	h.logger.Warn("exchange refused action", zap.Int("status", status), zap.Error(err))
	b.Notices.Notify(domain.Notification{Level: domain.NotificationError, Message: message})
	return c.Status(status).JSON(dto.FailureResponse{Notifications: drain(b)})
}
