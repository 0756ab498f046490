package http

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/exchange-web/internal/api/http/handlers"
	"github.com/spec-kit/exchange-web/internal/config"
	"github.com/spec-kit/exchange-web/internal/guard"
	"github.com/spec-kit/exchange-web/internal/observability"
	"github.com/spec-kit/exchange-web/internal/session"
	apperrors "github.com/spec-kit/exchange-web/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(routeOf(c), c.Method(), domainErr.Code)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if domainErr.HTTPStatus >= 500 {
					logger.Error("request failed", zap.Error(domainErr))
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// toDomainError also understands fiber's own errors, e.g. body parse failures.
func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := "HTTP_ERROR"
		switch fe.Code {
		case http.StatusBadRequest:
			code = "BAD_REQUEST"
		case http.StatusNotFound:
			code = "NOT_FOUND"
		case http.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case http.StatusRequestTimeout:
			code = "TIMEOUT"
		}
		return apperrors.NewDomainError(code, fe.Message, fe.Code, nil)
	}
	return apperrors.ToDomainError(err)
}

func routeOf(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return c.Path()
}

// SessionMiddleware identifies the browser by its session cookie, minting a
// new random id when the cookie is missing or malformed, and attaches the
// browser's session to the request.
func SessionMiddleware(registry *session.Registry, cfg config.SessionConfig) fiber.Handler {
	name := cfg.CookieName
	if name == "" {
		name = "sid"
	}
	return func(c *fiber.Ctx) error {
		key := c.Cookies(name)
		if _, err := uuid.Parse(key); err != nil {
			key = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     name,
				Value:    key,
				Path:     "/",
				HTTPOnly: true,
				Secure:   cfg.CookieSecure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		b := registry.Open(c.UserContext(), key)
		// another instance sharing the token backend may have logged this
		// browser in or out since the last request
		b.State.Refresh(c.UserContext())
		handlers.SetBrowser(c, b)
		return c.Next()
	}
}

// guardLookup exposes the request's auth state to the route guards.
func guardLookup(c *fiber.Ctx) (guard.SessionSource, bool) {
	b, ok := handlers.BrowserFromContext(c)
	if !ok {
		return nil, false
	}
	return b.State, true
}
