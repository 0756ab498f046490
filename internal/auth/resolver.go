package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/exchange-web/internal/domain"
)

// IdentityProvider looks up the user a bearer token belongs to.
type IdentityProvider interface {
	CurrentUser(ctx context.Context, token string) (*domain.User, error)
}

// Resolver decides whether a token is usable and turns it into a user.
type Resolver struct {
	decoder  ClaimsDecoder
	identity IdentityProvider
	now      func() time.Time
	logger   *zap.Logger
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver constructs a resolver. A nil decoder falls back to JWTDecoder.
func NewResolver(decoder ClaimsDecoder, identity IdentityProvider, opts ...ResolverOption) *Resolver {
	if decoder == nil {
		decoder = NewJWTDecoder()
	}
	r := &Resolver{
		decoder:  decoder,
		identity: identity,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Check returns nil when the token decodes and has not expired.
// A token without an expiry is treated as expired.
func (r *Resolver) Check(token string) error {
	claims, err := r.decoder.Decode(token)
	if err != nil {
		if errors.Is(err, ErrEmptyToken) {
			return err
		}
		if !errors.Is(err, ErrMalformedToken) {
			return errors.Join(ErrMalformedToken, err)
		}
		return err
	}
	if claims.ExpiresAt.IsZero() || !claims.ExpiresAt.After(r.now()) {
		return ErrExpiredToken
	}
	return nil
}

// IsExpired fails closed: any decoding problem counts as expired.
func (r *Resolver) IsExpired(token string) bool {
	return r.Check(token) != nil
}

// Resolve returns the user behind token. Stale tokens are rejected without a
// network call.
func (r *Resolver) Resolve(ctx context.Context, token string) (*domain.User, error) {
	if err := r.Check(token); err != nil {
		return nil, err
	}
	if r.identity == nil {
		return nil, &IdentityResolutionError{Err: errors.New("no identity provider")}
	}

	user, err := r.identity.CurrentUser(ctx, token)
	if err != nil {
		r.logger.Debug("identity lookup failed", zap.Error(err))
		return nil, &IdentityResolutionError{Err: err}
	}
	if user == nil {
		return nil, &IdentityResolutionError{Err: errors.New("empty identity")}
	}
	return user, nil
}
