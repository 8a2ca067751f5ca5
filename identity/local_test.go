package identity

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/showcase-backend/database"
	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/models"
	"github.com/rpupo63/showcase-backend/testutil"
)

var fastHashing = Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EventKind
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	p, err := NewLocal(database.New(testutil.NewDB(t)), LocalConfig{
		Secret:  []byte("test-secret-test-secret"),
		Hashing: fastHashing,
	})
	require.NoError(t, err)
	return p
}

func TestNewLocalRequiresSecret(t *testing.T) {
	_, err := NewLocal(database.New(testutil.NewDB(t)), LocalConfig{})
	assert.Error(t, err)
}

func TestLocalSignUpDefaults(t *testing.T) {
	p := newTestLocal(t)
	rec := &recorder{}
	p.Subscribe(rec.record)

	s, err := p.SignUp(context.Background(), SignUpInput{Username: "Alice", Password: "secret1"})
	require.NoError(t, err)

	assert.Equal(t, "alice", s.User.Username)
	assert.Equal(t, "alice@local.app", s.User.Email)
	assert.Equal(t, "https://api.dicebear.com/7.x/avataaars/svg?seed=alice", s.User.AvatarURL)
	assert.NotEmpty(t, s.AccessToken)
	assert.NotEmpty(t, s.RefreshToken)
	assert.Equal(t, []string{}, s.User.Skills)
	assert.Equal(t, []EventKind{EventSignedIn}, rec.kinds())
}

func TestLocalSignUpUsernameFromEmail(t *testing.T) {
	p := newTestLocal(t)
	s, err := p.SignUp(context.Background(), SignUpInput{Email: "Bob.Smith@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "bob.smith", s.User.Username)
	assert.Equal(t, "bob.smith@example.com", s.User.Email)
}

func TestLocalSignUpValidation(t *testing.T) {
	ctx := context.Background()
	p := newTestLocal(t)

	tests := []struct {
		name  string
		in    SignUpInput
		field string
	}{
		{"short username", SignUpInput{Username: "ab", Password: "secret1"}, "username"},
		{"bad characters", SignUpInput{Username: "a b c", Password: "secret1"}, "username"},
		{"too long", SignUpInput{Username: strings.Repeat("a", 33), Password: "secret1"}, "username"},
		{"short password", SignUpInput{Username: "carol", Password: "12345"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.SignUp(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, errs.IsValidationError(err))
			var apiErr *errs.ApiErr
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.field, apiErr.Field)
		})
	}
}

func TestLocalSignUpTakenUsername(t *testing.T) {
	ctx := context.Background()
	p := newTestLocal(t)
	_, err := p.SignUp(ctx, SignUpInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	_, err = p.SignUp(ctx, SignUpInput{Username: "ALICE", Password: "secret2"})
	assert.True(t, errs.IsUsernameTakenError(err))
	assert.Equal(t, 409, errs.StatusOf(err))
}

func TestLocalSignIn(t *testing.T) {
	ctx := context.Background()
	p := newTestLocal(t)
	_, err := p.SignUp(ctx, SignUpInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	s, err := p.SignIn(ctx, "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", s.User.Username)

	for _, tc := range [][2]string{{"alice", "wrong"}, {"nobody", "secret1"}, {"", ""}} {
		_, err := p.SignIn(ctx, tc[0], tc[1])
		assert.True(t, errs.IsInvalidCredentialsError(err), tc[0])
		assert.Equal(t, "invalid username or password", err.Error())
	}
}

func TestLocalValidateAndSignOut(t *testing.T) {
	ctx := context.Background()
	p := newTestLocal(t)
	s, err := p.SignUp(ctx, SignUpInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	u, err := p.Validate(ctx, s.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, u.ID)

	rec := &recorder{}
	p.Subscribe(rec.record)
	require.NoError(t, p.SignOut(ctx, s.RefreshToken))
	assert.Equal(t, []EventKind{EventSignedOut}, rec.kinds())

	_, err = p.Validate(ctx, s.AccessToken)
	assert.ErrorIs(t, err, errs.ErrSessionRevoked)

	_, err = p.Refresh(ctx, s.RefreshToken)
	assert.ErrorIs(t, err, errs.ErrSessionRevoked)

	assert.NoError(t, p.SignOut(ctx, s.RefreshToken))
	assert.NoError(t, p.SignOut(ctx, "unknown"))
}

func TestLocalValidateRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	p := newTestLocal(t)

	_, err := p.Validate(ctx, "")
	assert.ErrorIs(t, err, errs.ErrMissingToken)

	_, err = p.Validate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, errs.ErrInvalidToken)

	other := NewTokenIssuer([]byte("another-secret"), "showcase", time.Minute)
	forged, _, err := other.Issue("u", "alice", "s", time.Now())
	require.NoError(t, err)
	_, err = p.Validate(ctx, forged)
	assert.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestLocalValidateExpired(t *testing.T) {
	ctx := context.Background()
	p := newTestLocal(t)
	s, err := p.SignUp(ctx, SignUpInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	expired, _, err := p.tokens.Issue(s.User.ID, "alice", "sid", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = p.Validate(ctx, expired)
	assert.ErrorIs(t, err, errs.ErrExpiredToken)
}

func TestLocalRefreshRotates(t *testing.T) {
	ctx := context.Background()
	p := newTestLocal(t)
	s, err := p.SignUp(ctx, SignUpInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	next, err := p.Refresh(ctx, s.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, s.RefreshToken, next.RefreshToken)

	_, err = p.Validate(ctx, next.AccessToken)
	require.NoError(t, err)

	_, err = p.Refresh(ctx, s.RefreshToken)
	assert.ErrorIs(t, err, errs.ErrSessionRevoked, "an old refresh token cannot be reused")
}

func TestLocalUpdateProfile(t *testing.T) {
	ctx := context.Background()
	p := newTestLocal(t)
	alice, err := p.SignUp(ctx, SignUpInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)
	_, err = p.SignUp(ctx, SignUpInput{Username: "bob", Password: "secret1"})
	require.NoError(t, err)

	bio := "Builder"
	skills := []string{"Go", "SQL"}
	social := models.SocialLinks{GitHub: "https://github.com/alice"}
	u, err := p.UpdateProfile(ctx, alice.User.ID, Profile{Bio: &bio, Skills: &skills, Social: &social})
	require.NoError(t, err)
	assert.Equal(t, "Builder", u.Bio)
	assert.Equal(t, skills, u.Skills)
	assert.Equal(t, "https://github.com/alice", u.Social.GitHub)
	assert.Equal(t, "alice@local.app", u.Email)

	taken := "bob"
	_, err = p.UpdateProfile(ctx, alice.User.ID, Profile{Username: &taken})
	assert.True(t, errs.IsUsernameTakenError(err))

	renamed := "alice2"
	u, err = p.UpdateProfile(ctx, alice.User.ID, Profile{Username: &renamed})
	require.NoError(t, err)
	assert.Equal(t, "alice2", u.Username)

	_, err = p.SignIn(ctx, "alice2", "secret1")
	assert.NoError(t, err)
}

func TestLocalChangePassword(t *testing.T) {
	ctx := context.Background()
	p := newTestLocal(t)
	s, err := p.SignUp(ctx, SignUpInput{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	err = p.ChangePassword(ctx, s.User.ID, "wrong", "secret2")
	assert.True(t, errs.IsValidationError(err))

	err = p.ChangePassword(ctx, s.User.ID, "secret1", "123")
	assert.True(t, errs.IsValidationError(err))

	require.NoError(t, p.ChangePassword(ctx, s.User.ID, "secret1", "secret2"))

	_, err = p.SignIn(ctx, "alice", "secret1")
	assert.True(t, errs.IsInvalidCredentialsError(err))
	_, err = p.SignIn(ctx, "alice", "secret2")
	assert.NoError(t, err)
}
