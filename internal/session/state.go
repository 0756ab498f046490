// Package session owns the per-browser auth state: the token lifecycle,
// the login/register/logout transitions and the admin query.
//
// A State is the single writer of its token store. Every transition bumps a
// generation counter; a resolution or store write that belongs to an older
// generation is discarded, so the most recent transition always wins. Store
// I/O never runs under the state lock.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/exchange-web/internal/auth"
	"github.com/spec-kit/exchange-web/internal/domain"
	"github.com/spec-kit/exchange-web/internal/events"
	"github.com/spec-kit/exchange-web/internal/notify"
	"github.com/spec-kit/exchange-web/internal/tokenstore"
)

// User-facing messages.
const (
	MsgLoginSuccess       = "Login successful!"
	MsgLoginFailed        = "Login failed"
	MsgRegisterSuccess    = "Registration successful! Please login."
	MsgRegistrationFailed = "Registration failed"
	MsgLoggedOut          = "You have been logged out"
)

// TokenResolver checks and resolves tokens. *auth.Resolver implements it.
type TokenResolver interface {
	IsExpired(token string) bool
	Resolve(ctx context.Context, token string) (*domain.User, error)
}

// Authenticator is the remote authentication service.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error)
	Register(ctx context.Context, data domain.Registration) error
	Logout(ctx context.Context, token string) error
}

// Dependencies bundles the collaborators of a State.
type Dependencies struct {
	Key      string
	Store    tokenstore.Store
	Resolver TokenResolver
	Auth     Authenticator
	Notifier notify.Sink
	Events   events.Dispatcher
	Logger   *zap.Logger
}

// State is the auth state of one browser.
type State struct {
	key      string
	store    tokenstore.Store
	resolver TokenResolver
	authn    Authenticator
	notifier notify.Sink
	events   events.Dispatcher
	logger   *zap.Logger

	// writeMu serializes store writes so they land in generation order.
	writeMu sync.Mutex

	mu         sync.Mutex
	phase      domain.Phase
	token      string
	user       *domain.User
	loading    bool
	generation uint64
	settled    chan struct{}
	// pending is set while the current generation's store write has not
	// landed; the store is then behind the state.
	pending bool
}

// New builds a State in the Initializing phase. Call Start to seed it.
func New(deps Dependencies) *State {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.SinkFunc(nil)
	}
	return &State{
		key:      deps.Key,
		store:    deps.Store,
		resolver: deps.Resolver,
		authn:    deps.Auth,
		notifier: notifier,
		events:   deps.Events,
		logger:   logger.With(zap.String("session_key", deps.Key)),
		phase:    domain.PhaseInitializing,
		loading:  true,
		settled:  make(chan struct{}),
	}
}

// Start reads the token store once and resolves what it finds.
// Resolution of a usable token continues in the background.
// A transition that runs while the store read is in flight supersedes it.
func (s *State) Start(ctx context.Context) {
	s.mu.Lock()
	gen := s.beginLocked("")
	s.mu.Unlock()

	token := s.readStore(ctx)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded store read", zap.Uint64("generation", gen))
		return
	}
	s.token = token
	s.mu.Unlock()

	s.resolve(ctx, gen, token)
}

// ChangeToken installs a token that arrived outside the login flow and
// resolves it. Re-installing the current token is a no-op.
func (s *State) ChangeToken(ctx context.Context, token string) {
	s.changeToken(ctx, token, 0, true)
}

// Refresh re-reads the token store and hands a token another process wrote
// to the shared backend, or the absence of one, to the token change path.
// It does nothing while a resolution or a store write is in flight.
func (s *State) Refresh(ctx context.Context) {
	s.mu.Lock()
	if s.loading || s.pending {
		s.mu.Unlock()
		return
	}
	gen, current := s.generation, s.token
	s.mu.Unlock()

	token, ok, err := s.store.Get(ctx)
	if err != nil {
		s.logger.Warn("read token store", zap.Error(err))
		return
	}
	if !ok {
		token = ""
	}
	if token == current {
		return
	}

	s.logger.Info("token changed in store", zap.Bool("present", token != ""))
	s.changeToken(ctx, token, gen, false)
}

// changeToken starts a new generation for token. A non-zero expect makes the
// change conditional on no transition having happened since generation
// expect was observed. persist writes the token back to the store.
func (s *State) changeToken(ctx context.Context, token string, expect uint64, persist bool) {
	s.mu.Lock()
	if expect != 0 && (expect != s.generation || s.pending) {
		s.mu.Unlock()
		return
	}
	if token != "" && token == s.token && s.phase != domain.PhaseAnonymous {
		s.mu.Unlock()
		return
	}
	gen := s.beginLocked(token)
	persist = persist && token != ""
	s.pending = persist
	s.mu.Unlock()

	if persist {
		s.writeStore(ctx, gen, token)
	}
	s.resolve(ctx, gen, token)
}

// Login authenticates with the exchange API. On success the returned token
// is persisted and the state becomes Authenticated with the user from the
// login response. from is the location a guard preserved, if any.
func (s *State) Login(ctx context.Context, creds domain.Credentials, from string) (bool, *domain.Navigation) {
	if err := ValidateCredentials(creds); err != nil {
		s.notify(domain.NotificationError, validationMessage(err, MsgLoginFailed))
		s.publish(ctx, events.EventLoginFailed, s.Snapshot(), "validation")
		return false, nil
	}

	result, err := s.authn.Login(ctx, creds)
	if err == nil && (result == nil || result.Token == "") {
		err = &auth.AuthError{Err: errors.New("login response carried no token")}
	}
	if err != nil {
		s.logger.Info("login rejected", zap.Error(err))
		s.notify(domain.NotificationError, auth.UserMessage(err, MsgLoginFailed))
		s.publish(ctx, events.EventLoginFailed, s.Snapshot(), err.Error())
		return false, nil
	}

	user := result.User
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.pending = true
	s.phase = domain.PhaseAuthenticated
	s.token = result.Token
	s.user = &user
	s.settleLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.writeStore(ctx, gen, result.Token)

	s.notify(domain.NotificationSuccess, MsgLoginSuccess)
	s.publish(ctx, events.EventLoginSucceeded, snap, "")
	return true, &domain.Navigation{Path: ReturnPath(from), Replace: true}
}

// Register creates an account. The state is never changed; on success the
// caller is sent to the login page.
func (s *State) Register(ctx context.Context, data domain.Registration) (bool, *domain.Navigation) {
	if err := ValidateRegistration(data); err != nil {
		s.notify(domain.NotificationError, validationMessage(err, MsgRegistrationFailed))
		s.publish(ctx, events.EventRegistrationFailed, s.Snapshot(), "validation")
		return false, nil
	}

	if err := s.authn.Register(ctx, data); err != nil {
		s.logger.Info("registration rejected", zap.Error(err))
		s.notify(domain.NotificationError, auth.UserMessage(err, MsgRegistrationFailed))
		s.publish(ctx, events.EventRegistrationFailed, s.Snapshot(), err.Error())
		return false, nil
	}

	s.notify(domain.NotificationSuccess, MsgRegisterSuccess)
	s.publish(ctx, events.EventRegistered, s.Snapshot(), "")
	return true, &domain.Navigation{Path: domain.RouteLogin}
}

// Logout always ends Anonymous with a cleared store. The remote logout call
// is best-effort and runs in the background.
func (s *State) Logout(ctx context.Context) *domain.Navigation {
	s.mu.Lock()
	token := s.token
	s.generation++
	gen := s.generation
	s.pending = true
	s.anonymousLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.writeStore(ctx, gen, "")

	if s.authn != nil {
		bg := context.WithoutCancel(ctx)
		go func() {
			if err := s.authn.Logout(bg, token); err != nil {
				s.logger.Debug("remote logout failed", zap.Error(err))
			}
		}()
	}

	s.notify(domain.NotificationInfo, MsgLoggedOut)
	s.publish(ctx, events.EventLoggedOut, snap, "")
	return &domain.Navigation{Path: domain.RouteHome}
}

// IsAdmin is true only when Authenticated with exactly the admin role.
func (s *State) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == domain.PhaseAuthenticated && s.user.IsAdmin()
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Await blocks until no resolution is in flight or ctx is done.
func (s *State) Await(ctx context.Context) (domain.Session, error) {
	s.mu.Lock()
	loading := s.loading
	ch := s.settled
	s.mu.Unlock()

	if !loading {
		return s.Snapshot(), nil
	}
	select {
	case <-ch:
		return s.Snapshot(), nil
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	}
}

// Key identifies the browser this state belongs to.
func (s *State) Key() string {
	return s.key
}

func (s *State) resolve(ctx context.Context, gen uint64, token string) {
	if token == "" || s.resolver.IsExpired(token) {
		reason := "no token"
		if token != "" {
			reason = "stale token"
		}
		s.mu.Lock()
		if gen != s.generation {
			s.mu.Unlock()
			return
		}
		s.pending = true
		s.anonymousLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.writeStore(ctx, gen, "")
		s.publish(ctx, events.EventSessionCleared, snap, reason)
		return
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		started := time.Now()
		user, err := s.resolver.Resolve(bg, token)
		if err == nil && user == nil {
			err = errors.New("resolver returned no user")
		}

		s.mu.Lock()
		if gen != s.generation {
			s.mu.Unlock()
			s.logger.Debug("discarding superseded resolution", zap.Uint64("generation", gen))
			s.publish(bg, events.EventResolutionDropped, s.Snapshot(), "superseded")
			return
		}
		if err != nil {
			s.pending = true
			s.anonymousLocked()
			snap := s.snapshotLocked()
			s.mu.Unlock()
			s.writeStore(bg, gen, "")
			s.logger.Info("session resolution failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
			s.publish(bg, events.EventSessionCleared, snap, err.Error())
			return
		}
		s.phase = domain.PhaseAuthenticated
		s.user = user
		s.token = token
		s.settleLocked()
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(bg, events.EventSessionResolved, snap, "")
	}()
}

// beginLocked enters Initializing for a new generation.
func (s *State) beginLocked(token string) uint64 {
	s.generation++
	s.pending = false
	s.phase = domain.PhaseInitializing
	s.token = token
	s.user = nil
	if !s.loading {
		s.settled = make(chan struct{})
	}
	s.loading = true
	return s.generation
}

// readStore returns the persisted token or "" when there is none or the
// read fails.
func (s *State) readStore(ctx context.Context) string {
	token, ok, err := s.store.Get(ctx)
	if err != nil {
		s.logger.Warn("read token store", zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

// writeStore persists token, or clears the store when token is empty, unless
// a newer transition has taken over. Writes are serialized, and the newer
// transition writes after this one, so the store ends at the newest value.
func (s *State) writeStore(ctx context.Context, gen uint64, token string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	current := gen == s.generation
	s.mu.Unlock()
	if !current {
		return
	}

	var err error
	if token == "" {
		err = s.store.Clear(ctx)
	} else {
		err = s.store.Set(ctx, token)
	}
	if err != nil {
		s.logger.Warn("write token store", zap.Bool("clear", token == ""), zap.Error(err))
	}

	s.mu.Lock()
	if gen == s.generation {
		s.pending = false
	}
	s.mu.Unlock()
}

// anonymousLocked settles Anonymous. The caller clears the store.
func (s *State) anonymousLocked() {
	s.phase = domain.PhaseAnonymous
	s.token = ""
	s.user = nil
	s.settleLocked()
}

func (s *State) settleLocked() {
	if s.loading {
		s.loading = false
		close(s.settled)
	}
}

func (s *State) snapshotLocked() domain.Session {
	snap := domain.Session{Phase: s.phase, Token: s.token, Loading: s.loading}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

func (s *State) notify(level domain.NotificationLevel, message string) {
	s.notifier.Notify(domain.Notification{Level: level, Message: message})
}

func (s *State) publish(ctx context.Context, typ events.EventType, snap domain.Session, reason string) {
	if s.events == nil {
		return
	}
	event := events.Event{
		Type:       typ,
		SessionKey: s.key,
		Phase:      snap.Phase,
		Reason:     reason,
		Timestamp:  time.Now(),
	}
	if snap.User != nil {
		event.UserID = snap.User.ID
		event.Role = snap.User.Role
	}
	_ = s.events.Publish(ctx, event)
}

// ReturnPath picks where to go after login: the preserved location when it
// is a local, non-auth path, otherwise the dashboard.
func ReturnPath(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.Contains(from, "\\") {
		return domain.RouteDashboard
	}
	path := from
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch path {
	case domain.RouteLogin, domain.RouteRegister:
		return domain.RouteDashboard
	}
	return from
}
