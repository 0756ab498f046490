package mockapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/exchange-web/internal/auth"
	"github.com/spec-kit/exchange-web/internal/config"
	"github.com/spec-kit/exchange-web/internal/domain"
	apperrors "github.com/spec-kit/exchange-web/pkg/util"
)

const maxRevokedTokens = 100_000

// Service implements register, login, current-user and logout.
type Service struct {
	accounts   AccountRepository
	tokens     *auth.TokenManager
	bcryptCost int
	revoked    *expirable.LRU[string, struct{}]
	logger     *zap.Logger
}

// NewService builds the service.
func NewService(cfg config.AuthConfig, accounts AccountRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		accounts:   accounts,
		tokens:     auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		revoked:    expirable.NewLRU[string, struct{}](maxRevokedTokens, nil, ttl),
		logger:     logger.Named("mockapi"),
	}
}

// RegisterRequest is the POST /auth/register body.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the request.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
	)
}

// Register creates a non-privileged account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.NewValidationError("Invalid registration data", fieldErrors(err))
	}
	return s.create(ctx, req.Name, req.Email, req.Password, domain.RoleUser)
}

// SeedAdmin makes sure an admin account exists. An existing account with the
// email is left untouched.
func (s *Service) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		s.logger.Warn("admin seed skipped; AUTH_ADMIN_EMAIL or AUTH_ADMIN_PASSWORD empty")
		return nil
	}
	_, err := s.create(ctx, "Administrator", email, password, domain.RoleAdmin)
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == "CONFLICT" {
		return nil
	}
	if err == nil {
		s.logger.Info("admin account seeded", zap.String("email", email))
	}
	return err
}

func (s *Service) create(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	account := &Account{
		User:         domain.User{Name: name, Email: email, Role: role},
		PasswordHash: hash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperrors.NewConflict("Email already registered", nil)
		}
		return nil, apperrors.NewInternalError(fmt.Errorf("create account: %w", err))
	}
	user := account.User
	return &user, nil
}

// Login verifies credentials and issues an access token.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	account, err := s.accounts.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("Invalid email or password")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, creds.Password); err != nil {
		return nil, apperrors.NewUnauthorized("Invalid email or password")
	}

	token, _, err := s.tokens.GenerateToken(account.User)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.LoginResult{Token: token, User: account.User}, nil
}

// Authenticate verifies a bearer token and loads its account.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if _, revoked := s.revoked.Get(token); revoked {
		return nil, apperrors.NewUnauthorized("token revoked")
	}
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	account, err := s.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, apperrors.NewInternalError(err)
	}
	user := account.User
	return &user, nil
}

// Logout revokes token until it would have expired anyway.
func (s *Service) Logout(_ context.Context, token string) {
	s.revoked.Add(token, struct{}{})
}

func fieldErrors(err error) map[string]any {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return nil
	}
	out := make(map[string]any, len(errs))
	for field, fieldErr := range errs {
		out[field] = fieldErr.Error()
	}
	return out
}
