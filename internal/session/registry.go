package session

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/spec-kit/exchange-web/internal/events"
	"github.com/spec-kit/exchange-web/internal/notify"
	"github.com/spec-kit/exchange-web/internal/tokenstore"
)

// Browser is everything the server keeps in memory for one browser.
type Browser struct {
	Key     string
	State   *State
	Notices *notify.Buffer
}

// RegistryConfig tunes the in-memory session cache.
type RegistryConfig struct {
	MaxSessions int
	IdleTimeout time.Duration
}

// Registry hands out one Browser per session key, creating and starting the
// auth state on first sight. Idle browsers are evicted; their tokens stay in
// the backend, so the next request seeds a fresh state from the store the
// same way a page reload does.
type Registry struct {
	backend  tokenstore.Backend
	resolver TokenResolver
	authn    Authenticator
	events   events.Dispatcher
	logger   *zap.Logger

	mu    sync.Mutex
	cache *expirable.LRU[string, *Browser]
}

// NewRegistry builds a registry.
func NewRegistry(cfg RegistryConfig, backend tokenstore.Backend, resolver TokenResolver, authn Authenticator, dispatcher events.Dispatcher, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	r := &Registry{
		backend:  backend,
		resolver: resolver,
		authn:    authn,
		events:   dispatcher,
		logger:   logger.Named("session"),
	}
	r.cache = expirable.NewLRU[string, *Browser](cfg.MaxSessions, func(key string, _ *Browser) {
		r.logger.Debug("browser session evicted", zap.String("session_key", key))
	}, idle)
	return r
}

// Open returns the browser for key, starting its auth state if new.
func (r *Registry) Open(ctx context.Context, key string) *Browser {
	r.mu.Lock()
	if b, ok := r.cache.Get(key); ok {
		// re-adding refreshes the idle deadline
		r.cache.Add(key, b)
		r.mu.Unlock()
		return b
	}

	notices := notify.NewBuffer(notify.DefaultCapacity)
	b := &Browser{
		Key:     key,
		Notices: notices,
		State: New(Dependencies{
			Key:      key,
			Store:    tokenstore.Scope(r.backend, key),
			Resolver: r.resolver,
			Auth:     r.authn,
			Notifier: notify.Logged(notices, r.logger),
			Events:   r.events,
			Logger:   r.logger,
		}),
	}
	r.cache.Add(key, b)
	r.mu.Unlock()

	b.State.Start(ctx)
	return b
}

// Len reports how many browsers are in memory.
func (r *Registry) Len() int {
	return r.cache.Len()
}
