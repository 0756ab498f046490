package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exchange-web/internal/apiclient"
	"github.com/spec-kit/exchange-web/internal/domain"
	"github.com/spec-kit/exchange-web/internal/session"
	apperrors "github.com/spec-kit/exchange-web/pkg/util"
)

const browserKey = "browser_session"

// SetBrowser attaches the browser session to the request.
func SetBrowser(c *fiber.Ctx, b *session.Browser) {
	c.Locals(browserKey, b)
}

// BrowserFromContext retrieves the browser session of the request.
func BrowserFromContext(c *fiber.Ctx) (*session.Browser, bool) {
	b, ok := c.Locals(browserKey).(*session.Browser)
	return b, ok && b != nil
}

func browser(c *fiber.Ctx) (*session.Browser, error) {
	b, ok := BrowserFromContext(c)
	if !ok {
		return nil, apperrors.NewInternalError(errors.New("no browser session on request"))
	}
	return b, nil
}

// bearer returns the token of an authenticated session. Guards run first,
// so a missing token means the session changed in between.
func bearer(b *session.Browser) (domain.Session, error) {
	snap := b.State.Snapshot()
	if !snap.Authenticated() || snap.Token == "" {
		return snap, apperrors.NewUnauthorized("not authenticated")
	}
	return snap, nil
}

func drain(b *session.Browser) []domain.Notification {
	return b.Notices.Drain()
}

// upstreamError translates exchange API failures for the error middleware.
func upstreamError(err error) error {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		return apperrors.NewUnauthorized("session rejected by exchange api")
	}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			return apperrors.NewNotFound("resource", nil)
		case http.StatusForbidden:
			return apperrors.NewForbidden("exchange api refused access")
		}
	}
	return apperrors.NewUpstreamError(err)
}

func pageParams(c *fiber.Ctx, defaultLimit int) (page, limit int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit = c.QueryInt("limit", defaultLimit)
	if limit < 1 || limit > maxPageSize {
		limit = defaultLimit
	}
	return page, limit
}

const maxPageSize = 100
