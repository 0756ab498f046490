package domain

// NotificationLevel classifies transient user-facing feedback.
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
	NotificationInfo    NotificationLevel = "info"
)

// Notification is a toast-style message for the browser.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}
