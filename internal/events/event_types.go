package events

import (
	"time"

	"github.com/spec-kit/exchange-web/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionResolved    EventType = "session_resolved"
	EventSessionCleared     EventType = "session_cleared"
	EventResolutionDropped  EventType = "resolution_dropped"
	EventLoginSucceeded     EventType = "login_succeeded"
	EventLoginFailed        EventType = "login_failed"
	EventRegistered         EventType = "registered"
	EventRegistrationFailed EventType = "registration_failed"
	EventLoggedOut          EventType = "logged_out"
)

// Event represents a session transition emitted by the auth state.
type Event struct {
	Type       EventType    `json:"type"`
	SessionKey string       `json:"session_key"`
	Phase      domain.Phase `json:"phase"`
	UserID     string       `json:"user_id,omitempty"`
	Role       domain.Role  `json:"role,omitempty"`
	Reason     string       `json:"reason,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}
