package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/exchange-web/internal/domain"
)

func TestDispatcher_RoutesByType(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var typed, all []EventType

	d.Subscribe(EventLoggedOut, func(_ context.Context, e Event) error {
		typed = append(typed, e.Type)
		return nil
	})
	d.SubscribeAll(func(_ context.Context, e Event) error {
		all = append(all, e.Type)
		return nil
	})

	_ = d.Publish(context.Background(), Event{Type: EventLoginSucceeded})
	_ = d.Publish(context.Background(), Event{Type: EventLoggedOut})

	assert.Equal(t, []EventType{EventLoggedOut}, typed)
	assert.Equal(t, []EventType{EventLoginSucceeded, EventLoggedOut}, all)
}

func TestDispatcher_HandlerErrorsDoNotStopOthers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))
	called := false

	d.Subscribe(EventSessionCleared, func(context.Context, Event) error { return errors.New("boom") })
	d.Subscribe(EventSessionCleared, func(context.Context, Event) error {
		called = true
		return nil
	})

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventSessionCleared}))
	assert.True(t, called)
	assert.Equal(t, 1, logs.FilterMessage("event handler failed").Len())
}

func TestAuditLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := AuditLogger(zap.New(core))

	err := handler(context.Background(), Event{Type: EventSessionResolved, SessionKey: "k", Phase: domain.PhaseAuthenticated, UserID: "u1"})
	assert.NoError(t, err)
	assert.Equal(t, "u1", logs.All()[0].ContextMap()["user_id"])
}
