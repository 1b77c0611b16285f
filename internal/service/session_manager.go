package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"wallhub/internal/cache"
	"wallhub/internal/config"
	"wallhub/internal/gateway"
	"wallhub/internal/models"
	"wallhub/internal/observability"
)

// DefaultBootstrapTimeout bounds how long bootstrap may stay unresolved.
const DefaultBootstrapTimeout = 3 * time.Second

// SessionState is the lifecycle state of a SessionManager.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateResolving
	StateAuthenticated
	StateAnonymous
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Identity exposes the current user to managers that act on its behalf.
type Identity interface {
	User() *models.User
}

// SessionManager owns the authenticated user and its profile.
type SessionManager struct {
	auth     gateway.Auth
	profiles gateway.ProfileTable
	store    cache.ArtifactStore
	guard    config.Guard
	timeout  time.Duration

	mu          sync.RWMutex
	state       SessionState
	user        *models.User
	profile     *models.UserProfile
	loading     bool
	closed      bool
	startedAt   time.Time
	watchdog    *time.Timer
	unsubscribe func()

	ready     chan struct{}
	readyOnce sync.Once
}

// NewSessionManager creates a manager in the uninitialized state. A
// non-positive timeout selects DefaultBootstrapTimeout.
func NewSessionManager(auth gateway.Auth, profiles gateway.ProfileTable, store cache.ArtifactStore, guard config.Guard, timeout time.Duration) *SessionManager {
	if timeout <= 0 {
		timeout = DefaultBootstrapTimeout
	}
	return &SessionManager{
		auth:     auth,
		profiles: profiles,
		store:    store,
		guard:    guard,
		timeout:  timeout,
		loading:  true,
		ready:    make(chan struct{}),
	}
}

// Start begins bootstrap without blocking. Later calls are no-ops.
func (m *SessionManager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateUninitialized || m.closed {
		m.mu.Unlock()
		return
	}
	m.startedAt = time.Now()

	if !m.guard.Configured() {
		m.state = StateAnonymous
		m.loading = false
		m.mu.Unlock()
		observability.Logger.InfoContext(ctx, "backend not configured, running anonymous",
			slog.String("reason", m.guard.Reason()))
		m.markReady("unconfigured")
		return
	}

	// The watchdog resolves the state but never cancels the session fetch.
	bg := context.WithoutCancel(ctx)
	m.state = StateResolving
	m.watchdog = time.AfterFunc(m.timeout, m.onWatchdog)
	m.unsubscribe = m.auth.OnAuthStateChange(func(event models.AuthEvent, session *models.Session) {
		m.onAuthEvent(bg, event, session)
	})
	m.mu.Unlock()

	go m.resolve(bg)
}

// Bootstrap starts the manager and waits until it reaches a terminal state.
func (m *SessionManager) Bootstrap(ctx context.Context) error {
	m.Start(ctx)
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready is closed once bootstrap resolves through any path.
func (m *SessionManager) Ready() <-chan struct{} {
	return m.ready
}

func (m *SessionManager) resolve(ctx context.Context) {
	ctx = observability.WithOperation(ctx, "session.bootstrap")
	m.purge(ctx)

	session, err := m.auth.GetSession(ctx)
	if err != nil {
		observability.Logger.WarnContext(ctx, "session fetch failed, clearing cached tokens",
			slog.String("error", err.Error()))
		m.purge(ctx)
		m.apply(ctx, nil)
		m.finishLoading("error")
		return
	}

	var user *models.User
	if session != nil {
		user = session.User
	}
	m.apply(ctx, user)
	if user != nil {
		m.finishLoading("authenticated")
		return
	}
	m.finishLoading("anonymous")
}

func (m *SessionManager) onAuthEvent(ctx context.Context, event models.AuthEvent, session *models.Session) {
	var user *models.User
	if session != nil {
		user = session.User
	}
	observability.Logger.DebugContext(ctx, "auth state changed",
		slog.String("event", string(event)),
		slog.Bool("user_present", user != nil),
	)
	m.apply(ctx, user)
	m.finishLoading("event")
}

// apply replaces the user, then resolves or clears the profile.
func (m *SessionManager) apply(ctx context.Context, user *models.User) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if user == nil {
		m.user = nil
		m.profile = nil
		m.state = StateAnonymous
		m.mu.Unlock()
		return
	}
	cp := *user
	m.user = &cp
	m.state = StateAuthenticated
	if m.profile != nil && m.profile.UserID != cp.ID {
		m.profile = nil
	}
	m.mu.Unlock()

	m.resolveProfile(ctx, &cp)
}

// resolveProfile loads the profile of user, creating a default one when the
// backend reports no row. Other failures leave the profile unset.
func (m *SessionManager) resolveProfile(ctx context.Context, user *models.User) {
	ctx = observability.WithUserID(ctx, user.ID)

	profile, err := m.profiles.GetByUserID(ctx, user.ID)
	if errors.Is(err, gateway.ErrNotFound) {
		profile, err = m.profiles.Insert(ctx, models.NewDefaultProfile(user.ID))
		if err != nil {
			observability.Logger.ErrorContext(ctx, "failed to create profile", slog.String("error", err.Error()))
			return
		}
	} else if err != nil {
		observability.Logger.ErrorContext(ctx, "failed to fetch profile", slog.String("error", err.Error()))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil || m.user.ID != user.ID || profile.UserID != user.ID {
		return
	}
	m.profile = profile
}

func (m *SessionManager) onWatchdog() {
	m.mu.Lock()
	if !m.loading {
		m.mu.Unlock()
		return
	}
	m.loading = false
	m.watchdog = nil
	if m.state == StateResolving {
		m.state = StateAnonymous
	}
	m.mu.Unlock()

	observability.Logger.Warn("session bootstrap timed out", slog.Duration("timeout", m.timeout))
	m.markReady("timeout")
}

func (m *SessionManager) finishLoading(outcome string) {
	m.mu.Lock()
	m.loading = false
	if m.watchdog != nil {
		m.watchdog.Stop()
		m.watchdog = nil
	}
	m.mu.Unlock()
	m.markReady(outcome)
}

func (m *SessionManager) markReady(outcome string) {
	m.readyOnce.Do(func() {
		m.mu.RLock()
		started := m.startedAt
		m.mu.RUnlock()
		observability.SessionBootstrapDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
		close(m.ready)
	})
}

func (m *SessionManager) purge(ctx context.Context) {
	n, err := cache.PurgeAuthArtifacts(ctx, m.store)
	if err != nil {
		observability.Logger.WarnContext(ctx, "failed to purge cached auth artifacts", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		observability.Logger.DebugContext(ctx, "purged cached auth artifacts", slog.Int("count", n))
	}
}

// SignIn authenticates with email and password. The profile is resolved by
// the SIGNED_IN event the auth service publishes.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) error {
	if !m.guard.Configured() {
		return models.NewConfigurationError("Supabase is not configured. Please set up your environment variables.")
	}
	session, err := m.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return m.authFailure(ctx, "sign in", err)
	}
	m.adopt(ctx, session)
	return nil
}

// SignUp registers a new account. When the backend requires confirmation
// no session is established.
func (m *SessionManager) SignUp(ctx context.Context, email, password string) error {
	if !m.guard.Configured() {
		return models.NewConfigurationError("Supabase is not configured. Please set up your environment variables.")
	}
	session, err := m.auth.SignUp(ctx, email, password)
	if err != nil {
		return m.authFailure(ctx, "sign up", err)
	}
	m.adopt(ctx, session)
	return nil
}

func (m *SessionManager) authFailure(ctx context.Context, operation string, err error) error {
	if gateway.IsRefreshTokenError(err) {
		m.purge(ctx)
	}
	return models.NewBackendError(operation, err)
}

// adopt applies a session returned directly by the auth service when no
// event has already delivered the same user.
func (m *SessionManager) adopt(ctx context.Context, session *models.Session) {
	if session == nil || session.User == nil {
		return
	}
	m.mu.RLock()
	known := m.user != nil && m.user.ID == session.User.ID
	m.mu.RUnlock()
	if !known {
		m.apply(ctx, session.User)
	}
}

// SignOut ends the session. Local user, profile and cached tokens are
// cleared even when the backend call fails or the backend is unconfigured.
func (m *SessionManager) SignOut(ctx context.Context) error {
	var err error
	if m.guard.Configured() {
		if signOutErr := m.auth.SignOut(ctx); signOutErr != nil {
			err = models.NewBackendError("sign out", signOutErr)
		}
	} else {
		err = models.NewConfigurationError("Supabase is not configured.")
	}

	m.mu.Lock()
	m.user = nil
	m.profile = nil
	if m.state != StateUninitialized {
		m.state = StateAnonymous
	}
	m.mu.Unlock()

	m.purge(ctx)
	return err
}

// UpdateProfile applies patch to the current user's profile.
func (m *SessionManager) UpdateProfile(ctx context.Context, patch models.ProfilePatch) (*models.UserProfile, error) {
	user := m.User()
	if user == nil || !m.guard.Configured() {
		return nil, models.NewUnauthorizedError("Not authenticated")
	}
	if patch.Empty() {
		return nil, models.NewValidationError("Nothing to update")
	}

	updated, err := m.profiles.Update(ctx, user.ID, patch)
	if err != nil {
		return nil, models.NewBackendError("update profile", err)
	}

	m.mu.Lock()
	if m.user != nil && m.user.ID == updated.UserID {
		m.profile = updated
	}
	m.mu.Unlock()

	cp := *updated
	return &cp, nil
}

// Close releases the auth subscription and stops the watchdog.
func (m *SessionManager) Close() {
	m.mu.Lock()
	m.closed = true
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	if m.watchdog != nil {
		m.watchdog.Stop()
		m.watchdog = nil
	}
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// State returns the lifecycle state.
func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// User returns a copy of the current user, or nil.
func (m *SessionManager) User() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	cp := *m.user
	return &cp
}

// Profile returns a copy of the current profile, or nil.
func (m *SessionManager) Profile() *models.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return nil
	}
	cp := *m.profile
	return &cp
}

// Loading reports whether bootstrap is still in progress.
func (m *SessionManager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// Configured reports whether the backend is usable.
func (m *SessionManager) Configured() bool {
	return m.guard.Configured()
}
