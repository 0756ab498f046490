package auth

import (
	"errors"
	"fmt"
)

// ErrMalformedToken is returned when a token cannot be decoded as claims.
var ErrMalformedToken = errors.New("malformed token")

// ErrExpiredToken is returned when a decoded token is at or past its expiry.
var ErrExpiredToken = errors.New("token expired")

// ErrEmptyToken is returned when there is no token to inspect.
var ErrEmptyToken = errors.New("empty token")

// IdentityResolutionError wraps a failed lookup of the user behind a token,
// whether the exchange API was unreachable or rejected the token.
type IdentityResolutionError struct {
	Err error
}

func (e *IdentityResolutionError) Error() string {
	return fmt.Sprintf("resolve identity: %v", e.Err)
}

func (e *IdentityResolutionError) Unwrap() error {
	return e.Err
}

// AuthError is a login or registration rejection.
// Message is the server-provided text, empty when the server gave none.
type AuthError struct {
	Message string
	Status  int
	Err     error
}

func (e *AuthError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "authentication rejected"
	}
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// UserMessage returns the server message, or fallback when there is none.
func UserMessage(err error, fallback string) string {
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return fallback
}

// IsTokenRejected reports whether err means the token is unusable locally,
// before any network call.
func IsTokenRejected(err error) bool {
	return errors.Is(err, ErrMalformedToken) || errors.Is(err, ErrExpiredToken) || errors.Is(err, ErrEmptyToken)
}
