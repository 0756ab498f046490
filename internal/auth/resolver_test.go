package auth

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/spec-kit/exchange-web/internal/domain"
)

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fakeIdentity struct {
	user  *domain.User
	err   error
	calls atomic.Int32
}

func (f *fakeIdentity) CurrentUser(_ context.Context, _ string) (*domain.User, error) {
	f.calls.Add(1)
	return f.user, f.err
}

func signedToken(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestResolver(identity IdentityProvider) *Resolver {
	return NewResolver(nil, identity, WithClock(func() time.Time { return fixedNow }))
}

func TestIsExpired_PastExpiryIsExpired(t *testing.T) {
	r := newTestResolver(nil)
	rapid.Check(t, func(rt *rapid.T) {
		ago := rapid.Int64Range(1, 10*365*24*3600).Draw(rt, "seconds_ago")
		token := signedToken(t, jwt.MapClaims{"sub": "u1", "exp": fixedNow.Unix() - ago})
		if !r.IsExpired(token) {
			rt.Fatalf("token expired %ds ago reported as live", ago)
		}
	})
}

func TestIsExpired_FutureExpiryIsLive(t *testing.T) {
	r := newTestResolver(nil)
	rapid.Check(t, func(rt *rapid.T) {
		ahead := rapid.Int64Range(1, 10*365*24*3600).Draw(rt, "seconds_ahead")
		token := signedToken(t, jwt.MapClaims{"sub": "u1", "exp": fixedNow.Unix() + ahead})
		if r.IsExpired(token) {
			rt.Fatalf("token expiring in %ds reported as expired", ahead)
		}
	})
}

func TestIsExpired_MalformedIsExpired(t *testing.T) {
	r := newTestResolver(nil)
	segment := rapid.StringMatching(`[A-Za-z0-9_\-]{0,24}`)
	rapid.Check(t, func(rt *rapid.T) {
		token := rapid.OneOf(
			segment,
			rapid.Custom(func(rt *rapid.T) string {
				return strings.Join([]string{
					segment.Draw(rt, "header"),
					segment.Draw(rt, "payload"),
					segment.Draw(rt, "signature"),
				}, ".")
			}),
		).Draw(rt, "token")
		if !r.IsExpired(token) {
			rt.Fatalf("malformed token %q reported as live", token)
		}
	})
}

func TestCheck_Boundaries(t *testing.T) {
	r := newTestResolver(nil)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrEmptyToken},
		{"whitespace", "   ", ErrEmptyToken},
		{"garbage", "not-a-token", ErrMalformedToken},
		{"expiry equals now", signedToken(t, jwt.MapClaims{"exp": fixedNow.Unix()}), ErrExpiredToken},
		{"missing exp", signedToken(t, jwt.MapClaims{"sub": "u1"}), ErrExpiredToken},
		{"non numeric exp", signedToken(t, jwt.MapClaims{"exp": "tomorrow"}), ErrMalformedToken},
		{"live", signedToken(t, jwt.MapClaims{"exp": fixedNow.Add(time.Minute).Unix()}), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Check(tt.token)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsTokenRejected(err))
		})
	}
}

func TestCheck_CustomDecoderErrorsCountAsMalformed(t *testing.T) {
	decoder := ClaimsDecoderFunc(func(string) (domain.Claims, error) {
		return domain.Claims{}, errors.New("unsupported format")
	})
	r := NewResolver(decoder, nil)

	err := r.Check("anything")
	assert.ErrorIs(t, err, ErrMalformedToken)
	assert.True(t, r.IsExpired("anything"))
}

func TestResolve_SkipsNetworkForStaleToken(t *testing.T) {
	identity := &fakeIdentity{user: &domain.User{ID: "u1"}}
	r := newTestResolver(identity)

	_, err := r.Resolve(context.Background(), signedToken(t, jwt.MapClaims{"exp": fixedNow.Add(-time.Second).Unix()}))
	require.ErrorIs(t, err, ErrExpiredToken)

	_, err = r.Resolve(context.Background(), "garbage")
	require.ErrorIs(t, err, ErrMalformedToken)

	assert.Equal(t, int32(0), identity.calls.Load())
}

func TestResolve_ReturnsUser(t *testing.T) {
	want := &domain.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleAdmin}
	identity := &fakeIdentity{user: want}
	r := newTestResolver(identity)

	got, err := r.Resolve(context.Background(), signedToken(t, jwt.MapClaims{"exp": fixedNow.Add(time.Hour).Unix()}))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, int32(1), identity.calls.Load())
}

func TestResolve_WrapsIdentityFailures(t *testing.T) {
	live := signedToken(t, jwt.MapClaims{"exp": fixedNow.Add(time.Hour).Unix()})

	t.Run("provider error", func(t *testing.T) {
		cause := errors.New("connection refused")
		r := newTestResolver(&fakeIdentity{err: cause})

		_, err := r.Resolve(context.Background(), live)
		var resErr *IdentityResolutionError
		require.ErrorAs(t, err, &resErr)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("nil user", func(t *testing.T) {
		r := newTestResolver(&fakeIdentity{})

		_, err := r.Resolve(context.Background(), live)
		var resErr *IdentityResolutionError
		require.ErrorAs(t, err, &resErr)
	})

	t.Run("no provider", func(t *testing.T) {
		r := newTestResolver(nil)

		_, err := r.Resolve(context.Background(), live)
		var resErr *IdentityResolutionError
		require.ErrorAs(t, err, &resErr)
	})
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Invalid credentials", UserMessage(&AuthError{Message: "Invalid credentials"}, "Login failed"))
	assert.Equal(t, "Login failed", UserMessage(&AuthError{Status: 500}, "Login failed"))
	assert.Equal(t, "Login failed", UserMessage(errors.New("timeout"), "Login failed"))
}
