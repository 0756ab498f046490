package guard

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exchange-web/internal/domain"
)

// Placeholder messages rendered while the session is still resolving.
const (
	MsgCheckingAuth        = "Checking authentication..."
	MsgCheckingPermissions = "Checking permissions..."
)

// SessionSource is the read side of a browser's auth state.
type SessionSource interface {
	Snapshot() domain.Session
	Await(ctx context.Context) (domain.Session, error)
}

// Lookup finds the session of the current request.
type Lookup func(c *fiber.Ctx) (SessionSource, bool)

// Observer is told about every decision, e.g. for metrics.
type Observer func(name string, d Decision)

type options struct {
	grace   time.Duration
	observe Observer
}

// Option configures the middleware.
type Option func(*options)

// WithGrace lets the middleware wait up to d for an in-flight resolution
// before answering with the placeholder.
func WithGrace(d time.Duration) Option {
	return func(o *options) { o.grace = d }
}

// WithObserver registers a decision observer.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observe = fn }
}

// RequireAuth protects a route with the General guard.
func RequireAuth(lookup Lookup, opts ...Option) fiber.Handler {
	return Middleware("general", General, MsgCheckingAuth, lookup, opts...)
}

// RequireAdmin protects a route with the Admin guard.
func RequireAdmin(lookup Lookup, opts ...Option) fiber.Handler {
	return Middleware("admin", Admin, MsgCheckingPermissions, lookup, opts...)
}

// Middleware adapts g to fiber. Wait renders a 202 placeholder with
// Retry-After, Redirect answers 302 and Allow continues the chain.
func Middleware(name string, g Guard, waitMessage string, lookup Lookup, opts ...Option) fiber.Handler {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *fiber.Ctx) error {
		var sess domain.Session
		if src, ok := lookup(c); ok {
			sess = snapshot(c.UserContext(), src, o.grace)
		} else {
			sess = domain.Session{Phase: domain.PhaseAnonymous}
		}

		d := g(sess, c.OriginalURL())
		if o.observe != nil {
			o.observe(name, d)
		}

		switch d.Kind {
		case Allow:
			return c.Next()
		case Redirect:
			return c.Redirect(redirectTarget(d), http.StatusFound)
		default:
			c.Set(fiber.HeaderRetryAfter, "1")
			return c.Status(http.StatusAccepted).JSON(fiber.Map{
				"status":  "loading",
				"message": waitMessage,
			})
		}
	}
}

func snapshot(ctx context.Context, src SessionSource, grace time.Duration) domain.Session {
	sess := src.Snapshot()
	if !sess.Loading || grace <= 0 {
		return sess
	}
	ctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	// on timeout Await still returns the current snapshot
	sess, _ = src.Await(ctx)
	return sess
}

func redirectTarget(d Decision) string {
	if d.From == "" {
		return d.Path
	}
	return d.Path + "?" + url.Values{"from": {d.From}}.Encode()
}
