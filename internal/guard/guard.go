// Package guard decides whether a request may render a protected page.
//
// The decisions are pure functions of a session snapshot and the requested
// location; middleware.go adapts them to fiber.
package guard

import "github.com/spec-kit/exchange-web/internal/domain"

// Kind is the outcome of a guard decision.
type Kind int

const (
	Wait Kind = iota
	Allow
	Redirect
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	default:
		return "wait"
	}
}

// Decision is what a guard tells the router to do.
// Path and From are only set for Redirect.
type Decision struct {
	Kind Kind
	Path string
	From string
}

// Guard is a decision function.
type Guard func(sess domain.Session, location string) Decision

// General admits any authenticated session.
func General(sess domain.Session, location string) Decision {
	if sess.Loading || sess.Phase == domain.PhaseInitializing {
		return Decision{Kind: Wait}
	}
	if !sess.Authenticated() {
		return Decision{Kind: Redirect, Path: domain.RouteLogin, From: location}
	}
	return Decision{Kind: Allow}
}

// Admin admits authenticated sessions whose user has the admin role.
// Authentication is decided first; an authenticated non-admin is sent to the
// dashboard without a return location.
func Admin(sess domain.Session, location string) Decision {
	if d := General(sess, location); d.Kind != Allow {
		return d
	}
	if !sess.User.IsAdmin() {
		return Decision{Kind: Redirect, Path: domain.RouteDashboard}
	}
	return Decision{Kind: Allow}
}
