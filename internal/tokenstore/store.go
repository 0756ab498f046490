// Package tokenstore persists the bearer token of each browser session.
//
// A Backend holds tokens for many browsers, keyed by the browser session id.
// A Store is a Backend bound to one key and is the only handle the auth
// state ever sees: a single slot holding one token string.
package tokenstore

import (
	"context"
	"errors"
)

// ErrEmptyKey is returned when a store is bound to an empty browser key.
var ErrEmptyKey = errors.New("tokenstore: empty key")

// Backend persists tokens keyed by browser session id.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Store is a single persisted token slot. No validation happens here.
type Store interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

type scopedStore struct {
	backend Backend
	key     string
}

// Scope binds backend to one browser key.
func Scope(backend Backend, key string) Store {
	return &scopedStore{backend: backend, key: key}
}

func (s *scopedStore) Get(ctx context.Context) (string, bool, error) {
	if s.key == "" {
		return "", false, ErrEmptyKey
	}
	return s.backend.Get(ctx, s.key)
}

func (s *scopedStore) Set(ctx context.Context, token string) error {
	if s.key == "" {
		return ErrEmptyKey
	}
	return s.backend.Set(ctx, s.key, token)
}

func (s *scopedStore) Clear(ctx context.Context) error {
	if s.key == "" {
		return ErrEmptyKey
	}
	return s.backend.Delete(ctx, s.key)
}
