package notify

import (
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/exchange-web/internal/domain"
)

// DefaultCapacity bounds how many undelivered notifications a browser keeps.
const DefaultCapacity = 20

// Sink accepts transient user-facing feedback. Fire-and-forget.
type Sink interface {
	Notify(n domain.Notification)
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(domain.Notification)

// Notify satisfies Sink.
func (f SinkFunc) Notify(n domain.Notification) {
	if f != nil {
		f(n)
	}
}

// Buffer queues notifications until the next response drains them.
// When full the oldest entry is dropped.
type Buffer struct {
	mu       sync.Mutex
	capacity int
	pending  []domain.Notification
}

// NewBuffer creates a buffer; non-positive capacity uses DefaultCapacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{capacity: capacity}
}

// Notify enqueues n.
func (b *Buffer) Notify(n domain.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == b.capacity {
		b.pending = b.pending[1:]
	}
	b.pending = append(b.pending, n)
}

// Drain returns and clears everything queued, oldest first.
func (b *Buffer) Drain() []domain.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	if out == nil {
		return []domain.Notification{}
	}
	return out
}

// Logged wraps next so every notification is also written to logger.
func Logged(next Sink, logger *zap.Logger) Sink {
	return SinkFunc(func(n domain.Notification) {
		logger.Debug("notification", zap.String("level", string(n.Level)), zap.String("message", n.Message))
		if next != nil {
			next.Notify(n)
		}
	})
}
