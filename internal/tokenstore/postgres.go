package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of *pgxpool.Pool the backend needs.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresBackend stores tokens in the session_tokens table.
type PostgresBackend struct {
	pool PgxPool
}

// NewPostgresBackend returns a Postgres-backed implementation.
func NewPostgresBackend(pool PgxPool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (p *PostgresBackend) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT token FROM session_tokens WHERE sid=$1`

	var token string
	if err := p.pool.QueryRow(ctx, query, key).Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select token: %w", err)
	}
	return token, true, nil
}

func (p *PostgresBackend) Set(ctx context.Context, key, token string) error {
	const query = `
        INSERT INTO session_tokens (sid, token, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (sid) DO UPDATE SET token=EXCLUDED.token, updated_at=NOW()`

	if _, err := p.pool.Exec(ctx, query, key, token); err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM session_tokens WHERE sid=$1`

	if _, err := p.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Prune deletes tokens last written before cutoff. Postgres has no key
// expiry, so a sweeper calls this to honour the token TTL.
func (p *PostgresBackend) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM session_tokens WHERE updated_at < $1`

	tag, err := p.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
