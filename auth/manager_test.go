package auth

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/showcase-backend/database"
	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/identity"
	"github.com/rpupo63/showcase-backend/testutil"
)

// fakeProvider accepts "access-<n>" / "refresh-<n>" token pairs for user u1.
type fakeProvider struct {
	identity.Emitter

	mu       sync.Mutex
	gen      int
	valid    map[string]bool
	refresh  map[string]bool
	signOut  error
	block    chan struct{}
	refreshN atomic.Int32
	inSignIn atomic.Int32
	maxIn    atomic.Int32
}

var alice = &identity.User{ID: "u1", Username: "alice"}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{valid: map[string]bool{}, refresh: map[string]bool{}}
}

func (f *fakeProvider) issue() *identity.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	access := "access-" + string(rune('0'+f.gen))
	refresh := "refresh-" + string(rune('0'+f.gen))
	f.valid[access] = true
	f.refresh[refresh] = true
	return &identity.Session{User: alice, AccessToken: access, RefreshToken: refresh, ExpiresAt: time.Now().Add(time.Hour)}
}

func (f *fakeProvider) SignIn(_ context.Context, username, password string) (*identity.Session, error) {
	n := f.inSignIn.Add(1)
	defer f.inSignIn.Add(-1)
	for {
		max := f.maxIn.Load()
		if n <= max || f.maxIn.CompareAndSwap(max, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	if username != "alice" || password != "secret1" {
		return nil, errs.NewInvalidCredentialsError()
	}
	return f.issue(), nil
}

func (f *fakeProvider) SignUp(_ context.Context, in identity.SignUpInput) (*identity.Session, error) {
	if in.Username == "taken" {
		return nil, errs.NewUsernameTakenError(in.Username)
	}
	return f.issue(), nil
}

func (f *fakeProvider) SignOut(_ context.Context, refreshToken string) error {
	f.mu.Lock()
	delete(f.refresh, refreshToken)
	err := f.signOut
	f.mu.Unlock()
	return err
}

func (f *fakeProvider) Validate(_ context.Context, accessToken string) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.valid[accessToken] {
		return nil, errs.NewInvalidTokenError(nil)
	}
	return alice, nil
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) (*identity.Session, error) {
	f.refreshN.Add(1)
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	ok := f.refresh[refreshToken]
	delete(f.refresh, refreshToken)
	f.mu.Unlock()
	if !ok {
		return nil, errs.NewSessionRevokedError()
	}
	return f.issue(), nil
}

func (f *fakeProvider) UpdateProfile(context.Context, string, identity.Profile) (*identity.User, error) {
	return alice, nil
}

func (f *fakeProvider) ChangePassword(context.Context, string, string, string) error {
	return nil
}

// revokeAll invalidates every token, as a sign-out from another device would.
func (f *fakeProvider) revokeAll() {
	f.mu.Lock()
	f.valid = map[string]bool{}
	f.refresh = map[string]bool{}
	f.mu.Unlock()
	f.Emit(identity.Event{Kind: identity.EventSignedOut, UserID: "u1"})
}

func TestStartWithoutStoredSession(t *testing.T) {
	m := NewManager(newFakeProvider(), NewMemoryStore())
	assert.Equal(t, StateUninitialized, m.Snapshot().State)

	snap := m.Start(context.Background())
	defer m.Close()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Nil(t, snap.User)
	assert.NoError(t, snap.LastError)
}

func TestStartWithValidSession(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	store := NewMemoryStore()
	s := p.issue()
	require.NoError(t, store.Save(ctx, Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}))

	m := NewManager(p, store)
	defer m.Close()
	var seen []State
	m.OnChange(func(s Snapshot) { seen = append(seen, s.State) })

	snap := m.Start(ctx)
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, "alice", snap.User.Username)
	assert.Equal(t, []State{StateLoading, StateAuthenticated}, seen)
}

func TestStartRefreshesExpiredAccessToken(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	store := NewMemoryStore()
	s := p.issue()
	require.NoError(t, store.Save(ctx, Tokens{AccessToken: "stale", RefreshToken: s.RefreshToken}))

	m := NewManager(p, store)
	defer m.Close()
	snap := m.Start(ctx)
	assert.Equal(t, StateAuthenticated, snap.State)

	tokens, err := store.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", tokens.AccessToken)
	assert.NotEqual(t, s.RefreshToken, tokens.RefreshToken)
}

func TestStartWithOnlyRefreshToken(t *testing.T) {
	ctx := context.Background()
	provider, err := identity.NewLocal(database.New(testutil.NewDB(t)), identity.LocalConfig{
		Secret:  []byte("manager-test-secret"),
		Hashing: identity.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
	})
	require.NoError(t, err)
	s, err := provider.SignUp(ctx, identity.SignUpInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, Tokens{RefreshToken: s.RefreshToken}))

	m := NewManager(provider, store)
	defer m.Close()
	snap := m.Start(ctx)
	require.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, "alice", snap.User.Username)
	assert.NoError(t, snap.LastError)

	tokens, err := store.Load(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEqual(t, s.RefreshToken, tokens.RefreshToken)
}

func TestStartDropsDeadSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, Tokens{AccessToken: "stale", RefreshToken: "gone"}))

	m := NewManager(newFakeProvider(), store)
	defer m.Close()
	snap := m.Start(ctx)
	assert.Equal(t, StateAnonymous, snap.State)

	tokens, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, tokens.Empty())
}

func TestLoginFailureRecordsError(t *testing.T) {
	m := NewManager(newFakeProvider(), NewMemoryStore())
	user, err := m.Login(context.Background(), "alice", "wrong")
	assert.Nil(t, user)
	assert.True(t, errs.IsInvalidCredentialsError(err))

	snap := m.Snapshot()
	assert.Equal(t, StateAnonymous, snap.State)
	assert.Equal(t, err, snap.LastError)
}

func TestLoginAndRegister(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(newFakeProvider(), store)

	user, err := m.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, StateAuthenticated, m.Snapshot().State)

	tokens, err := m.Tokens(ctx)
	require.NoError(t, err)
	assert.False(t, tokens.Empty())

	_, err = m.Register(ctx, "taken", "secret1", "")
	assert.True(t, errs.IsUsernameTakenError(err))
	assert.Equal(t, StateAnonymous, m.Snapshot().State)

	_, err = m.Register(ctx, "carol", "secret1", "")
	require.NoError(t, err)
	assert.Equal(t, StateAuthenticated, m.Snapshot().State)
}

func TestLogoutClearsSessionWhenProviderFails(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	p.signOut = errors.New("network down")
	store := NewMemoryStore()
	m := NewManager(p, store)

	_, err := m.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	err = m.Logout(ctx)
	assert.EqualError(t, err, "network down")
	assert.Equal(t, StateAnonymous, m.Snapshot().State)
	assert.Nil(t, m.User())

	tokens, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, tokens.Empty())
}

func TestProviderEventsDriveState(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	m := NewManager(p, NewMemoryStore())
	m.Start(ctx)
	defer m.Close()

	_, err := m.Login(ctx, "alice", "secret1")
	require.NoError(t, err)

	p.revokeAll()
	require.Eventually(t, func() bool {
		return m.Snapshot().State == StateAnonymous
	}, time.Second, 5*time.Millisecond)
}

func TestCloseRemovesSubscription(t *testing.T) {
	p := newFakeProvider()
	m := NewManager(p, NewMemoryStore())
	m.Start(context.Background())
	require.Equal(t, 1, p.Len())

	m.Close()
	m.Close()
	assert.Zero(t, p.Len())
}

func TestOnChangeRemover(t *testing.T) {
	m := NewManager(newFakeProvider(), NewMemoryStore())
	calls := 0
	remove := m.OnChange(func(Snapshot) { calls++ })
	_, _ = m.Login(context.Background(), "alice", "secret1")
	remove()
	_, _ = m.Login(context.Background(), "alice", "secret1")
	assert.Equal(t, 2, calls)
}

func TestConcurrentLoginsAreSerialized(t *testing.T) {
	p := newFakeProvider()
	m := NewManager(p, NewMemoryStore())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Login(context.Background(), "alice", "secret1")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), p.maxIn.Load())
	assert.Equal(t, StateAuthenticated, m.Snapshot().State)
}

func TestConcurrentRefreshesShareOneCall(t *testing.T) {
	ctx := context.Background()
	p := newFakeProvider()
	store := NewMemoryStore()
	s := p.issue()
	require.NoError(t, store.Save(ctx, Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}))
	m := NewManager(p, store)

	p.block = make(chan struct{})
	var wg sync.WaitGroup
	results := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = m.Refresh(ctx)
		}(i)
	}
	require.Eventually(t, func() bool { return p.refreshN.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(p.block)
	wg.Wait()

	assert.Equal(t, int32(1), p.refreshN.Load())
	for _, err := range results {
		assert.NoError(t, err)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.json"))

	tokens, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, tokens.Empty())

	want := Tokens{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.Save(ctx, want))

	got, err := NewFileStore(store.Path()).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
	tokens, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, tokens.Empty())
}
