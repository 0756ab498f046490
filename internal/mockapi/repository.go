// Package mockapi is a development stand-in for the exchange API's
// authentication endpoints.
package mockapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/exchange-web/internal/domain"
)

// ErrEmailTaken is returned when an account with the email exists.
var ErrEmailTaken = errors.New("email already registered")

// Account is a stored user with its credentials.
type Account struct {
	domain.User
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AccountRepository defines persistence access for accounts. Lookups that
// find nothing return pgx.ErrNoRows.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
}

// Querier is the subset of *pgxpool.Pool the repository uses.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pgAccountRepository struct {
	db Querier
}

// NewPostgresAccountRepository returns a Postgres-backed implementation.
func NewPostgresAccountRepository(db Querier) AccountRepository {
	return &pgAccountRepository{db: db}
}

func (r *pgAccountRepository) Create(ctx context.Context, account *Account) error {
	const query = `
        INSERT INTO users (id, name, email, password_hash, role)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at, updated_at`

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.Email = normalizeEmail(account.Email)
	err := r.db.QueryRow(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.PasswordHash,
		account.Role,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (r *pgAccountRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	const query = `
        SELECT id, name, email, password_hash, role, created_at, updated_at
        FROM users WHERE id=$1`

	return r.scan(r.db.QueryRow(ctx, query, id))
}

func (r *pgAccountRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	const query = `
        SELECT id, name, email, password_hash, role, created_at, updated_at
        FROM users WHERE email=$1`

	return r.scan(r.db.QueryRow(ctx, query, normalizeEmail(email)))
}

func (r *pgAccountRepository) scan(row pgx.Row) (*Account, error) {
	var account Account
	if err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

type memoryAccountRepository struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string
}

// NewMemoryAccountRepository keeps accounts in process memory.
func NewMemoryAccountRepository() AccountRepository {
	return &memoryAccountRepository{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

func (r *memoryAccountRepository) Create(_ context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(account.Email)
	if _, exists := r.byEmail[email]; exists {
		return ErrEmailTaken
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	account.Email = email
	account.CreatedAt, account.UpdatedAt = now, now

	stored := *account
	r.byID[stored.ID] = &stored
	r.byEmail[email] = stored.ID
	return nil
}

func (r *memoryAccountRepository) GetByID(_ context.Context, id string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *account
	return &out, nil
}

func (r *memoryAccountRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	r.mu.RLock()
	id, ok := r.byEmail[normalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r.GetByID(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
