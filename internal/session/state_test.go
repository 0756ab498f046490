package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/exchange-web/internal/auth"
	"github.com/spec-kit/exchange-web/internal/domain"
	"github.com/spec-kit/exchange-web/internal/events"
	"github.com/spec-kit/exchange-web/internal/notify"
	"github.com/spec-kit/exchange-web/internal/tokenstore"
)

var (
	alice = &domain.User{ID: "u-alice", Name: "Alice", Email: "alice@example.com", Role: domain.RoleUser}
	root  = &domain.User{ID: "u-root", Name: "Root", Email: "root@example.com", Role: domain.RoleAdmin}
)

type fakeResolver struct {
	mu      sync.Mutex
	expired map[string]bool
	users   map[string]*domain.User
	errs    map[string]error
	gates   map[string]chan struct{}
	calls   []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		expired: map[string]bool{},
		users:   map[string]*domain.User{},
		errs:    map[string]error{},
		gates:   map[string]chan struct{}{},
	}
}

func (f *fakeResolver) IsExpired(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expired[token]
}

func (f *fakeResolver) Resolve(_ context.Context, token string) (*domain.User, error) {
	f.mu.Lock()
	f.calls = append(f.calls, token)
	gate := f.gates[token]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[token], f.errs[token]
}

func (f *fakeResolver) gate(token string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[token] = ch
	return ch
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeAuth struct {
	loginResult *domain.LoginResult
	loginErr    error
	registerErr error
	logoutErr   error
	logins      atomic.Int32
	registers   atomic.Int32
	logouts     atomic.Int32
}

func (f *fakeAuth) Login(context.Context, domain.Credentials) (*domain.LoginResult, error) {
	f.logins.Add(1)
	return f.loginResult, f.loginErr
}

func (f *fakeAuth) Register(context.Context, domain.Registration) error {
	f.registers.Add(1)
	return f.registerErr
}

func (f *fakeAuth) Logout(context.Context, string) error {
	f.logouts.Add(1)
	return f.logoutErr
}

type harness struct {
	state    *State
	store    tokenstore.Store
	resolver *fakeResolver
	auth     *fakeAuth
	notices  *notify.Buffer
	events   []events.EventType
	mu       sync.Mutex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, tokenstore.Scope(tokenstore.NewMemoryBackend(), "browser"))
}

func newHarnessWithStore(t *testing.T, store tokenstore.Store) *harness {
	t.Helper()
	h := &harness{
		store:    store,
		resolver: newFakeResolver(),
		auth:     &fakeAuth{},
		notices:  notify.NewBuffer(0),
	}
	dispatcher := events.NewInMemoryDispatcher(nil)
	dispatcher.SubscribeAll(func(_ context.Context, e events.Event) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, e.Type)
		return nil
	})
	h.state = New(Dependencies{
		Key:      "browser",
		Store:    h.store,
		Resolver: h.resolver,
		Auth:     h.auth,
		Notifier: h.notices,
		Events:   dispatcher,
	})
	return h
}

func (h *harness) persisted(t *testing.T) (string, bool) {
	t.Helper()
	token, ok, err := h.store.Get(context.Background())
	require.NoError(t, err)
	return token, ok
}

func (h *harness) await(t *testing.T) domain.Session {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := h.state.Await(ctx)
	require.NoError(t, err)
	return snap
}

func (h *harness) eventTypes() []events.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]events.EventType{}, h.events...)
}

func TestNew_StartsInitializing(t *testing.T) {
	h := newHarness(t)

	snap := h.state.Snapshot()
	assert.Equal(t, domain.PhaseInitializing, snap.Phase)
	assert.True(t, snap.Loading)
	assert.False(t, h.state.IsAdmin())
}

func TestStart_NoTokenEndsAnonymousWithoutResolving(t *testing.T) {
	h := newHarness(t)
	h.state.Start(context.Background())

	snap := h.await(t)
	assert.Equal(t, domain.PhaseAnonymous, snap.Phase)
	assert.False(t, snap.Loading)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Token)
	assert.Zero(t, h.resolver.callCount())
}

func TestStart_ExpiredTokenIsPurgedWithoutResolving(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set(context.Background(), "stale"))
	h.resolver.expired["stale"] = true

	h.state.Start(context.Background())

	snap := h.await(t)
	assert.Equal(t, domain.PhaseAnonymous, snap.Phase)
	assert.False(t, snap.Loading)
	assert.Zero(t, h.resolver.callCount())
	_, ok := h.persisted(t)
	assert.False(t, ok)
	assert.Contains(t, h.eventTypes(), events.EventSessionCleared)
}

func TestStart_ValidTokenResolvesToUser(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set(context.Background(), "live"))
	h.resolver.users["live"] = alice

	h.state.Start(context.Background())

	snap := h.await(t)
	assert.Equal(t, domain.PhaseAuthenticated, snap.Phase)
	assert.False(t, snap.Loading)
	assert.Equal(t, "live", snap.Token)
	assert.Equal(t, alice, snap.User)
	assert.Equal(t, 1, h.resolver.callCount())
	assert.Contains(t, h.eventTypes(), events.EventSessionResolved)
}

func TestStart_ResolverFailurePurgesToken(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set(context.Background(), "revoked"))
	h.resolver.errs["revoked"] = &auth.IdentityResolutionError{Err: errors.New("401")}

	h.state.Start(context.Background())

	snap := h.await(t)
	assert.Equal(t, domain.PhaseAnonymous, snap.Phase)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Token)
	_, ok := h.persisted(t)
	assert.False(t, ok)
}

func TestStart_LoadingUntilResolutionSettles(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set(context.Background(), "slow"))
	h.resolver.users["slow"] = root
	release := h.resolver.gate("slow")

	h.state.Start(context.Background())

	snap := h.state.Snapshot()
	assert.Equal(t, domain.PhaseInitializing, snap.Phase)
	assert.True(t, snap.Loading)
	assert.False(t, h.state.IsAdmin(), "undetermined state is never admin")

	close(release)
	snap = h.await(t)
	assert.Equal(t, domain.PhaseAuthenticated, snap.Phase)
	assert.True(t, h.state.IsAdmin())
}

func TestAwait_HonoursContext(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set(context.Background(), "slow"))
	release := h.resolver.gate("slow")
	defer close(release)

	h.state.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	snap, err := h.state.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, snap.Loading)
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name string
		user *domain.User
		want bool
	}{
		{"admin", root, true},
		{"regular user", alice, false},
		{"role differs in case", &domain.User{ID: "x", Role: "Admin"}, false},
		{"role with whitespace", &domain.User{ID: "x", Role: "admin "}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.store.Set(context.Background(), "tok"))
			h.resolver.users["tok"] = tt.user
			h.state.Start(context.Background())
			h.await(t)

			assert.Equal(t, tt.want, h.state.IsAdmin())
		})
	}

	t.Run("anonymous", func(t *testing.T) {
		h := newHarness(t)
		h.state.Start(context.Background())
		h.await(t)
		assert.False(t, h.state.IsAdmin())
	})
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t)
	h.state.Start(context.Background())
	h.await(t)
	h.auth.loginResult = &domain.LoginResult{Token: "fresh", User: *root}

	ok, nav := h.state.Login(context.Background(), domain.Credentials{Email: "root@example.com", Password: "pw"}, "")

	require.True(t, ok)
	require.NotNil(t, nav)
	assert.Equal(t, domain.RouteDashboard, nav.Path)
	assert.True(t, nav.Replace)

	snap := h.state.Snapshot()
	assert.Equal(t, domain.PhaseAuthenticated, snap.Phase)
	assert.Equal(t, "fresh", snap.Token)
	assert.Equal(t, root.ID, snap.User.ID)
	assert.True(t, h.state.IsAdmin())
	assert.Zero(t, h.resolver.callCount(), "login response already carries the user")

	token, persisted := h.persisted(t)
	assert.True(t, persisted)
	assert.Equal(t, "fresh", token)

	notes := h.notices.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, domain.Notification{Level: domain.NotificationSuccess, Message: MsgLoginSuccess}, notes[0])
}

func TestLogin_ReturnsToPreservedLocation(t *testing.T) {
	h := newHarness(t)
	h.state.Start(context.Background())
	h.auth.loginResult = &domain.LoginResult{Token: "fresh", User: *alice}

	ok, nav := h.state.Login(context.Background(), domain.Credentials{Email: "alice@example.com", Password: "pw"}, "/wallet?tab=btc")
	require.True(t, ok)
	assert.Equal(t, "/wallet?tab=btc", nav.Path)
}

func TestLogin_RejectedLeavesStateUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"server message", &auth.AuthError{Message: "Invalid email or password", Status: 401}, "Invalid email or password"},
		{"no message", &auth.AuthError{Status: 500}, MsgLoginFailed},
		{"network", errors.New("dial tcp: refused"), MsgLoginFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.state.Start(context.Background())
			before := h.await(t)
			h.auth.loginErr = tt.err

			ok, nav := h.state.Login(context.Background(), domain.Credentials{Email: "a@example.com", Password: "pw"}, "")

			assert.False(t, ok)
			assert.Nil(t, nav)
			assert.Equal(t, before, h.state.Snapshot())
			_, persisted := h.persisted(t)
			assert.False(t, persisted)

			notes := h.notices.Drain()
			require.Len(t, notes, 1)
			assert.Equal(t, domain.NotificationError, notes[0].Level)
			assert.Equal(t, tt.message, notes[0].Message)
		})
	}
}

func TestLogin_RejectedKeepsExistingSession(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set(context.Background(), "live"))
	h.resolver.users["live"] = alice
	h.state.Start(context.Background())
	before := h.await(t)
	h.auth.loginErr = &auth.AuthError{Message: "nope"}

	ok, _ := h.state.Login(context.Background(), domain.Credentials{Email: "a@example.com", Password: "pw"}, "")

	assert.False(t, ok)
	assert.Equal(t, before, h.state.Snapshot())
	token, _ := h.persisted(t)
	assert.Equal(t, "live", token)
}

func TestLogin_EmptyTokenCountsAsFailure(t *testing.T) {
	h := newHarness(t)
	h.state.Start(context.Background())
	h.auth.loginResult = &domain.LoginResult{User: *alice}

	ok, _ := h.state.Login(context.Background(), domain.Credentials{Email: "a@example.com", Password: "pw"}, "")
	assert.False(t, ok)
	assert.Equal(t, domain.PhaseAnonymous, h.state.Snapshot().Phase)
}

func TestLogin_InvalidFormSkipsAPI(t *testing.T) {
	h := newHarness(t)
	h.state.Start(context.Background())

	ok, _ := h.state.Login(context.Background(), domain.Credentials{Email: "not-an-email", Password: ""}, "")

	assert.False(t, ok)
	assert.Zero(t, h.auth.logins.Load())
	notes := h.notices.Drain()
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, MsgLoginFailed)
	assert.Contains(t, notes[0].Message, "email")
}

func TestLogin_SupersedesInFlightResolution(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set(context.Background(), "old"))
	h.resolver.users["old"] = alice
	release := h.resolver.gate("old")

	h.state.Start(context.Background())
	h.auth.loginResult = &domain.LoginResult{Token: "new", User: *root}
	ok, _ := h.state.Login(context.Background(), domain.Credentials{Email: "root@example.com", Password: "pw"}, "")
	require.True(t, ok)

	close(release)
	assert.Eventually(t, func() bool {
		return containsEvent(h.eventTypes(), events.EventResolutionDropped)
	}, time.Second, 5*time.Millisecond)

	snap := h.state.Snapshot()
	assert.Equal(t, "new", snap.Token)
	assert.Equal(t, root.ID, snap.User.ID)
}

func TestRegister(t *testing.T) {
	valid := domain.Registration{Name: "Alice", Email: "alice@example.com", Password: "Str0ng!pass", ConfirmPassword: "Str0ng!pass"}

	t.Run("success", func(t *testing.T) {
		h := newHarness(t)
		h.state.Start(context.Background())
		before := h.await(t)

		ok, nav := h.state.Register(context.Background(), valid)

		require.True(t, ok)
		assert.Equal(t, domain.RouteLogin, nav.Path)
		assert.Equal(t, before, h.state.Snapshot())
		assert.Equal(t, []domain.Notification{{Level: domain.NotificationSuccess, Message: MsgRegisterSuccess}}, h.notices.Drain())
	})

	t.Run("rejected", func(t *testing.T) {
		h := newHarness(t)
		h.state.Start(context.Background())
		h.auth.registerErr = &auth.AuthError{Message: "Email already registered", Status: 409}

		ok, nav := h.state.Register(context.Background(), valid)

		assert.False(t, ok)
		assert.Nil(t, nav)
		assert.Equal(t, "Email already registered", h.notices.Drain()[0].Message)
	})

	t.Run("fallback message", func(t *testing.T) {
		h := newHarness(t)
		h.state.Start(context.Background())
		h.auth.registerErr = errors.New("timeout")

		ok, _ := h.state.Register(context.Background(), valid)

		assert.False(t, ok)
		assert.Equal(t, MsgRegistrationFailed, h.notices.Drain()[0].Message)
	})

	t.Run("weak password never reaches api", func(t *testing.T) {
		h := newHarness(t)
		h.state.Start(context.Background())
		weak := valid
		weak.Password, weak.ConfirmPassword = "password", "password"

		ok, _ := h.state.Register(context.Background(), weak)

		assert.False(t, ok)
		assert.Zero(t, h.auth.registers.Load())
	})
}

func TestLogout_AlwaysAnonymous(t *testing.T) {
	for _, logoutErr := range []error{nil, errors.New("server down")} {
		h := newHarness(t)
		h.state.Start(context.Background())
		h.auth.loginResult = &domain.LoginResult{Token: "tok", User: *alice}
		h.auth.logoutErr = logoutErr
		ok, _ := h.state.Login(context.Background(), domain.Credentials{Email: "alice@example.com", Password: "pw"}, "")
		require.True(t, ok)
		h.notices.Drain()

		nav := h.state.Logout(context.Background())

		assert.Equal(t, domain.RouteHome, nav.Path)
		snap := h.state.Snapshot()
		assert.Equal(t, domain.PhaseAnonymous, snap.Phase)
		assert.False(t, snap.Loading)
		assert.Nil(t, snap.User)
		_, persisted := h.persisted(t)
		assert.False(t, persisted)
		assert.Equal(t, []domain.Notification{{Level: domain.NotificationInfo, Message: MsgLoggedOut}}, h.notices.Drain())
		assert.Eventually(t, func() bool { return h.auth.logouts.Load() == 1 }, time.Second, 5*time.Millisecond)
	}
}

func TestLogout_WhileInitializingSettles(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Set(context.Background(), "slow"))
	h.resolver.users["slow"] = alice
	release := h.resolver.gate("slow")

	h.state.Start(context.Background())
	h.state.Logout(context.Background())
	close(release)

	snap := h.await(t)
	assert.Equal(t, domain.PhaseAnonymous, snap.Phase)
	assert.Eventually(t, func() bool {
		return containsEvent(h.eventTypes(), events.EventResolutionDropped)
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.PhaseAnonymous, h.state.Snapshot().Phase)
}

func TestOverlappingResolutions_LatestWins(t *testing.T) {
	t.Run("older completes last", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.store.Set(context.Background(), "A"))
		h.resolver.users["A"] = alice
		h.resolver.users["B"] = root
		releaseA := h.resolver.gate("A")
		releaseB := h.resolver.gate("B")

		h.state.Start(context.Background())
		h.state.ChangeToken(context.Background(), "B")

		close(releaseB)
		snap := h.await(t)
		assert.Equal(t, root.ID, snap.User.ID)

		close(releaseA)
		assert.Eventually(t, func() bool {
			return containsEvent(h.eventTypes(), events.EventResolutionDropped)
		}, time.Second, 5*time.Millisecond)

		snap = h.state.Snapshot()
		assert.Equal(t, "B", snap.Token)
		assert.Equal(t, root.ID, snap.User.ID)
	})

	t.Run("older completes first", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.store.Set(context.Background(), "A"))
		h.resolver.users["A"] = alice
		h.resolver.users["B"] = root
		releaseA := h.resolver.gate("A")
		releaseB := h.resolver.gate("B")

		h.state.Start(context.Background())
		h.state.ChangeToken(context.Background(), "B")

		close(releaseA)
		assert.Eventually(t, func() bool {
			return containsEvent(h.eventTypes(), events.EventResolutionDropped)
		}, time.Second, 5*time.Millisecond)
		assert.True(t, h.state.Snapshot().Loading, "stale result must not settle the newer attempt")

		close(releaseB)
		snap := h.await(t)
		assert.Equal(t, "B", snap.Token)
		assert.Equal(t, root.ID, snap.User.ID)
	})

	t.Run("stale failure does not purge newer token", func(t *testing.T) {
		h := newHarness(t)
		require.NoError(t, h.store.Set(context.Background(), "A"))
		h.resolver.errs["A"] = errors.New("rejected")
		h.resolver.users["B"] = alice
		releaseA := h.resolver.gate("A")

		h.state.Start(context.Background())
		h.state.ChangeToken(context.Background(), "B")
		h.await(t)

		close(releaseA)
		assert.Eventually(t, func() bool {
			return containsEvent(h.eventTypes(), events.EventResolutionDropped)
		}, time.Second, 5*time.Millisecond)

		token, ok := h.persisted(t)
		assert.True(t, ok)
		assert.Equal(t, "B", token)
		assert.Equal(t, domain.PhaseAuthenticated, h.state.Snapshot().Phase)
	})
}

func TestChangeToken_SameTokenResolvesOnce(t *testing.T) {
	h := newHarness(t)
	h.resolver.users["T"] = alice
	h.state.Start(context.Background())
	h.await(t)

	h.state.ChangeToken(context.Background(), "T")
	h.await(t)
	h.state.ChangeToken(context.Background(), "T")
	h.await(t)

	assert.Equal(t, 1, h.resolver.callCount())
	token, _ := h.persisted(t)
	assert.Equal(t, "T", token)
}

func TestChangeToken_ExpiredPurges(t *testing.T) {
	h := newHarness(t)
	h.resolver.expired["old"] = true
	h.state.Start(context.Background())

	h.state.ChangeToken(context.Background(), "old")

	snap := h.await(t)
	assert.Equal(t, domain.PhaseAnonymous, snap.Phase)
	_, ok := h.persisted(t)
	assert.False(t, ok)
	assert.Zero(t, h.resolver.callCount())
}

func TestReturnPath(t *testing.T) {
	tests := map[string]string{
		"":                    domain.RouteDashboard,
		"/wallet":             "/wallet",
		"/admin?tab=users":    "/admin?tab=users",
		"/login":              domain.RouteDashboard,
		"/register?x=1":       domain.RouteDashboard,
		"//evil.example.com":  domain.RouteDashboard,
		"https://evil.com":    domain.RouteDashboard,
		"/\\evil.example.com": domain.RouteDashboard,
	}
	for from, want := range tests {
		assert.Equal(t, want, ReturnPath(from), "from=%q", from)
	}
}

func containsEvent(list []events.EventType, want events.EventType) bool {
	for _, e := range list {
		if e == want {
			return true
		}
	}
	return false
}
