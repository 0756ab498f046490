package domain

// Phase is the lifecycle position of a browser session.
type Phase string

const (
	PhaseInitializing  Phase = "initializing"
	PhaseAuthenticated Phase = "authenticated"
	PhaseAnonymous     Phase = "anonymous"
)

// Session is an immutable snapshot of auth state.
type Session struct {
	Phase   Phase  `json:"phase"`
	Token   string `json:"-"`
	User    *User  `json:"user,omitempty"`
	Loading bool   `json:"loading"`
}

// Authenticated reports whether the snapshot carries a resolved user.
func (s Session) Authenticated() bool {
	return s.Phase == PhaseAuthenticated && s.User != nil
}

// Navigation is a routing command produced by a transition.
// The HTTP layer executes it; transitions never navigate themselves.
type Navigation struct {
	Path    string `json:"path"`
	Replace bool   `json:"replace"`
	From    string `json:"from,omitempty"`
}

// Well-known front-end routes.
const (
	RouteHome      = "/"
	RouteLogin     = "/login"
	RouteRegister  = "/register"
	RouteDashboard = "/dashboard"
	RouteNotFound  = "/404"
)
