package dto

import "github.com/spec-kit/exchange-web/internal/domain"

// LoginRequest is the login form. From carries the location a guard
// preserved when it is posted with the form rather than the query.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	From     string `json:"from" form:"from"`
}

// Credentials strips the routing field.
func (r LoginRequest) Credentials() domain.Credentials {
	return domain.Credentials{Email: r.Email, Password: r.Password}
}

// FormResponse describes an auth form page.
type FormResponse struct {
	Form          string                `json:"form"`
	Fields        []string              `json:"fields"`
	From          string                `json:"from,omitempty"`
	Session       SessionView           `json:"session"`
	Notifications []domain.Notification `json:"notifications"`
}

// FailureResponse is returned when a login or registration is refused.
type FailureResponse struct {
	Success       bool                  `json:"success"`
	Errors        map[string]any        `json:"errors,omitempty"`
	Notifications []domain.Notification `json:"notifications"`
}

// SessionView is the public part of a session snapshot.
type SessionView struct {
	Phase   domain.Phase `json:"phase"`
	Loading bool         `json:"loading"`
	User    *domain.User `json:"user,omitempty"`
	IsAdmin bool         `json:"isAdmin"`
}

// NewSessionView builds a SessionView; the token never leaves the server.
func NewSessionView(s domain.Session) SessionView {
	return SessionView{
		Phase:   s.Phase,
		Loading: s.Loading,
		User:    s.User,
		IsAdmin: s.Authenticated() && s.User.IsAdmin(),
	}
}
