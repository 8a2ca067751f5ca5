// Package auth tracks one client's authentication state against an identity
// provider and keeps its tokens in a TokenStore.
package auth

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/identity"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Snapshot is a consistent view of the manager. User is set only when
// State is StateAuthenticated.
type Snapshot struct {
	State     State
	User      *identity.User
	LastError error
}

// Manager drives Uninitialized -> Loading -> Authenticated | Anonymous.
// Operations that change the session run one at a time.
type Manager struct {
	provider identity.Provider
	store    TokenStore
	logger   zerolog.Logger

	// op serializes session transitions.
	op      sync.Mutex
	refresh singleflight.Group

	mu        sync.RWMutex
	snap      Snapshot
	observers map[int]func(Snapshot)
	nextObs   int

	lifecycle   sync.Mutex
	unsubscribe func()
	wake        chan struct{}
	cancel      context.CancelFunc
	loopDone    chan struct{}
}

func NewManager(provider identity.Provider, store TokenStore) *Manager {
	return &Manager{
		provider:  provider,
		store:     store,
		logger:    log.With().Str("component", "auth.manager").Logger(),
		snap:      Snapshot{State: StateUninitialized},
		observers: make(map[int]func(Snapshot)),
	}
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// User returns the authenticated user or nil.
func (m *Manager) User() *identity.User {
	return m.Snapshot().User
}

// OnChange registers fn to run after every state change and returns its remover.
func (m *Manager) OnChange(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, id)
			m.mu.Unlock()
		})
	}
}

// Tokens returns the stored tokens of the current session.
func (m *Manager) Tokens(ctx context.Context) (Tokens, error) {
	return m.store.Load(ctx)
}

// Start resolves the stored session once and then follows provider events
// until Close. Calling Start twice only re-resolves the session.
func (m *Manager) Start(ctx context.Context) Snapshot {
	m.lifecycle.Lock()
	if m.unsubscribe == nil {
		loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		m.cancel = cancel
		m.wake = make(chan struct{}, 1)
		m.loopDone = make(chan struct{})
		wake := m.wake
		m.unsubscribe = m.provider.Subscribe(func(ev identity.Event) { m.onEvent(wake, ev) })
		go m.loop(loopCtx, m.wake, m.loopDone)
	}
	m.lifecycle.Unlock()

	m.op.Lock()
	defer m.op.Unlock()
	m.set(Snapshot{State: StateLoading, User: m.Snapshot().User})
	m.resolveLocked(ctx)
	return m.Snapshot()
}

// Close drops the provider subscription and stops the event loop.
func (m *Manager) Close() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.unsubscribe == nil {
		return
	}
	m.unsubscribe()
	m.cancel()
	<-m.loopDone
	m.unsubscribe = nil
}

// onEvent runs on the provider's goroutine, possibly while an operation of
// this manager holds op, so it must not block.
func (m *Manager) onEvent(wake chan<- struct{}, ev identity.Event) {
	m.logger.Debug().Str("event", string(ev.Kind)).Str("userID", ev.UserID).Msg("identity event")
	select {
	case wake <- struct{}{}:
	default:
	}
}

func (m *Manager) loop(ctx context.Context, wake <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			m.op.Lock()
			m.resolveLocked(ctx)
			m.op.Unlock()
		}
	}
}

// resolveLocked derives the state from the stored tokens. Caller holds op.
func (m *Manager) resolveLocked(ctx context.Context) {
	tokens, err := m.store.Load(ctx)
	if err != nil {
		m.set(Snapshot{State: StateAnonymous, LastError: err})
		return
	}
	if tokens.Empty() {
		m.set(Snapshot{State: StateAnonymous})
		return
	}

	if tokens.AccessToken == "" {
		// Only a refresh token survived; there is nothing to validate.
		if _, err := m.refreshLocked(ctx); err != nil {
			m.logger.Debug().Err(err).Msg("stored session could not be refreshed")
		}
		return
	}

	user, err := m.provider.Validate(ctx, tokens.AccessToken)
	if err == nil {
		m.set(Snapshot{State: StateAuthenticated, User: user})
		return
	}
	if !errs.IsInvalidTokenError(err) && !errs.IsUnauthenticated(err) {
		// Provider unreachable: keep the tokens for the next attempt.
		m.set(Snapshot{State: StateAnonymous, LastError: err})
		return
	}
	if tokens.RefreshToken == "" {
		m.clearLocked(ctx, nil)
		return
	}
	if _, err := m.refreshLocked(ctx); err != nil {
		m.logger.Debug().Err(err).Msg("stored session could not be refreshed")
	}
}

// Refresh exchanges the stored refresh token for a new session. Concurrent
// callers share one provider round trip.
func (m *Manager) Refresh(ctx context.Context) (*identity.User, error) {
	v, err, _ := m.refresh.Do("refresh", func() (any, error) {
		m.op.Lock()
		defer m.op.Unlock()
		return m.refreshLocked(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*identity.User), nil
}

func (m *Manager) refreshLocked(ctx context.Context) (*identity.User, error) {
	tokens, err := m.store.Load(ctx)
	if err != nil {
		m.set(Snapshot{State: StateAnonymous, LastError: err})
		return nil, err
	}
	if tokens.RefreshToken == "" {
		m.set(Snapshot{State: StateAnonymous})
		return nil, errs.Unauthenticated
	}
	session, err := m.provider.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		if errs.IsInvalidTokenError(err) {
			m.clearLocked(ctx, err)
		} else {
			m.set(Snapshot{State: StateAnonymous, LastError: err})
		}
		return nil, err
	}
	return m.acceptLocked(ctx, session)
}

// Login signs in with username and password.
func (m *Manager) Login(ctx context.Context, username, password string) (*identity.User, error) {
	m.op.Lock()
	defer m.op.Unlock()

	m.set(Snapshot{State: StateLoading})
	session, err := m.provider.SignIn(ctx, username, password)
	if err != nil {
		m.clearLocked(ctx, err)
		return nil, err
	}
	return m.acceptLocked(ctx, session)
}

// Register creates an account and signs it in. email may be empty.
func (m *Manager) Register(ctx context.Context, username, password, email string) (*identity.User, error) {
	m.op.Lock()
	defer m.op.Unlock()

	m.set(Snapshot{State: StateLoading})
	session, err := m.provider.SignUp(ctx, identity.SignUpInput{Username: username, Password: password, Email: email})
	if err != nil {
		m.clearLocked(ctx, err)
		return nil, err
	}
	return m.acceptLocked(ctx, session)
}

// Logout revokes the session with the provider. The local session is
// dropped even when the provider call fails; that failure is returned.
func (m *Manager) Logout(ctx context.Context) error {
	m.op.Lock()
	defer m.op.Unlock()

	tokens, loadErr := m.store.Load(ctx)
	var err error
	if loadErr == nil && tokens.RefreshToken != "" {
		err = m.provider.SignOut(ctx, tokens.RefreshToken)
		if err != nil {
			m.logger.Warn().Err(err).Msg("provider sign-out failed, dropping local session anyway")
		}
	}
	m.clearLocked(ctx, err)
	return err
}

func (m *Manager) acceptLocked(ctx context.Context, session *identity.Session) (*identity.User, error) {
	err := m.store.Save(ctx, Tokens{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
	})
	if err != nil {
		m.set(Snapshot{State: StateAnonymous, LastError: err})
		return nil, err
	}
	m.set(Snapshot{State: StateAuthenticated, User: session.User})
	return session.User, nil
}

func (m *Manager) clearLocked(ctx context.Context, cause error) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error().Err(err).Msg("clearing token store")
		if cause == nil {
			cause = err
		}
	}
	m.set(Snapshot{State: StateAnonymous, LastError: cause})
}

func (m *Manager) set(s Snapshot) {
	m.mu.Lock()
	m.snap = s
	fns := make([]func(Snapshot), 0, len(m.observers))
	for _, fn := range m.observers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
