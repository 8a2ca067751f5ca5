package identity

import (
	"context"
	"testing"
	"time"

	"github.com/descope/go-sdk/descope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextUser(t *testing.T) {
	assert.Nil(t, UserFromContext(context.Background()))

	u := &User{ID: "u1"}
	ctx := ContextWithUser(context.Background(), u)
	assert.Same(t, u, UserFromContext(ctx))
}

func TestEmitterUnsubscribe(t *testing.T) {
	var e Emitter
	var got []Event
	unsubscribe := e.Subscribe(func(ev Event) { got = append(got, ev) })
	require.Equal(t, 1, e.Len())

	e.Emit(Event{Kind: EventSignedIn, UserID: "u1"})
	unsubscribe()
	unsubscribe()
	e.Emit(Event{Kind: EventSignedOut})

	assert.Equal(t, []Event{{Kind: EventSignedIn, UserID: "u1"}}, got)
	assert.Zero(t, e.Len())
}

func TestEmitterListenerMaySubscribe(t *testing.T) {
	var e Emitter
	calls := 0
	e.Subscribe(func(Event) {
		calls++
		e.Subscribe(func(Event) {})
	})
	e.Emit(Event{Kind: EventUserUpdated})
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, e.Len())
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(fastHashing)
	encoded, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.True(t, h.Verify("secret1", encoded))
	assert.False(t, h.Verify("secret2", encoded))
	assert.False(t, h.Verify("secret1", "$bcrypt$nope"))

	again, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, again)
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), "showcase", time.Minute)
	tok, expires, err := issuer.Issue("u1", "alice", "s1", time.Now())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), expires, 2*time.Second)

	userID, sessionID, err := issuer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, "s1", sessionID)

	_, _, err = NewTokenIssuer([]byte("secret"), "someone-else", time.Minute).Parse(tok)
	assert.Error(t, err)
}

func TestUserFromDescopeResponse(t *testing.T) {
	res := &descope.UserResponse{
		User:     descope.User{Email: "alice@local.app"},
		UserID:   "U123",
		LoginIDs: []string{"alice"},
		Picture:  "https://cdn.test/a.png",
		CustomAttributes: map[string]any{
			"bio":    "Builder",
			"skills": `["Go","SQL"]`,
			"social": `{"github":"https://github.com/alice"}`,
		},
	}
	u := userFromResponse(res)
	assert.Equal(t, "U123", u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@local.app", u.Email)
	assert.Equal(t, "https://cdn.test/a.png", u.AvatarURL)
	assert.Equal(t, "Builder", u.Bio)
	assert.Equal(t, []string{"Go", "SQL"}, u.Skills)
	assert.Equal(t, "https://github.com/alice", u.Social.GitHub)
}

func TestDescopeSessionFromInfo(t *testing.T) {
	s := sessionFromInfo(&descope.AuthenticationInfo{
		SessionToken: &descope.Token{JWT: "access", ID: "U1", Expiration: 1700000000},
		RefreshToken: &descope.Token{JWT: "refresh"},
	})
	assert.Equal(t, "access", s.AccessToken)
	assert.Equal(t, "refresh", s.RefreshToken)
	assert.Equal(t, "U1", s.User.ID)
	assert.Equal(t, time.Unix(1700000000, 0), s.ExpiresAt)
}
