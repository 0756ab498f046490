package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each token under prefix+key with an optional TTL.
type RedisBackend struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisBackend wraps a go-redis client. A zero ttl keeps tokens until cleared.
func NewRedisBackend(client redis.Cmdable, prefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	token, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get token: %w", err)
	}
	return token, true, nil
}

func (r *RedisBackend) Set(ctx context.Context, key, token string) error {
	if err := r.client.Set(ctx, r.prefix+key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete token: %w", err)
	}
	return nil
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
