// Package worker holds background jobs of the web tier.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pruner deletes tokens written before a cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenSweeper periodically removes persisted tokens older than the TTL from
// backends that cannot expire keys themselves.
type TokenSweeper struct {
	pruner   Pruner
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewTokenSweeper builds a sweeper. A non-positive interval defaults to
// one tenth of the TTL, and at least a minute.
func NewTokenSweeper(pruner Pruner, ttl, interval time.Duration, logger *zap.Logger) *TokenSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = ttl / 10
		if interval < time.Minute {
			interval = time.Minute
		}
	}
	return &TokenSweeper{
		pruner:   pruner,
		ttl:      ttl,
		interval: interval,
		logger:   logger.Named("token_sweeper"),
		now:      time.Now,
	}
}

// SweepOnce prunes everything older than now minus the TTL.
func (s *TokenSweeper) SweepOnce(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	n, err := s.pruner.Prune(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned stale tokens", zap.Int64("count", n))
	}
	return n, nil
}

// Run sweeps on every tick until ctx is cancelled.
func (s *TokenSweeper) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil {
			s.logger.Warn("token sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
