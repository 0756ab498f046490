package auth

import (
	"fmt"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/exchange-web/internal/domain"
)

// ClaimsDecoder extracts claims from a token without tying callers to a
// specific token format.
type ClaimsDecoder interface {
	Decode(token string) (domain.Claims, error)
}

// ClaimsDecoderFunc adapts a function into a ClaimsDecoder.
type ClaimsDecoderFunc func(token string) (domain.Claims, error)

// Decode satisfies the ClaimsDecoder interface.
func (f ClaimsDecoderFunc) Decode(token string) (domain.Claims, error) {
	if f == nil {
		return domain.Claims{}, ErrMalformedToken
	}
	return f(token)
}

// JWTDecoder reads JWT claims without verifying the signature.
// The front-end is not the token authority; the exchange API verifies
// the signature on every call that carries the token.
type JWTDecoder struct {
	parser *jwt.Parser
}

// NewJWTDecoder builds a decoder.
func NewJWTDecoder() *JWTDecoder {
	return &JWTDecoder{parser: jwt.NewParser()}
}

// Decode parses the token payload. A missing exp claim yields a zero ExpiresAt.
func (d *JWTDecoder) Decode(token string) (domain.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Claims{}, ErrEmptyToken
	}

	mapClaims := jwt.MapClaims{}
	if _, _, err := d.parser.ParseUnverified(token, mapClaims); err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	exp, err := mapClaims.GetExpirationTime()
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: exp: %v", ErrMalformedToken, err)
	}
	iat, err := mapClaims.GetIssuedAt()
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: iat: %v", ErrMalformedToken, err)
	}
	sub, err := mapClaims.GetSubject()
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: sub: %v", ErrMalformedToken, err)
	}

	claims := domain.Claims{Subject: sub}
	if exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat != nil {
		claims.IssuedAt = iat.Time
	}
	return claims, nil
}
