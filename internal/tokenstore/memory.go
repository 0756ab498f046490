package tokenstore

import (
	"context"
	"sync"
)

// MemoryBackend keeps tokens in process memory. Tokens do not survive a
// restart; use it for development and tests.
type MemoryBackend struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewMemoryBackend creates an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tokens: make(map[string]string)}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[key]
	return token, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[key] = token
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, key)
	return nil
}

func (m *MemoryBackend) Ping(context.Context) error {
	return nil
}

// Len reports how many tokens are held.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}
