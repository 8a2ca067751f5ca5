// Package identity defines the identity provider the backend authenticates
// against, and ships a built-in provider and a Descope adapter.
package identity

import (
	"context"
	"time"

	"github.com/rpupo63/showcase-backend/models"
)

// User is the session user as the provider reports it.
type User struct {
	ID        string             `json:"id"`
	Email     string             `json:"email"`
	Username  string             `json:"username"`
	AvatarURL string             `json:"avatar_url,omitempty"`
	Bio       string             `json:"bio,omitempty"`
	Website   string             `json:"website,omitempty"`
	Location  string             `json:"location,omitempty"`
	Skills    []string           `json:"skills"`
	Social    models.SocialLinks `json:"social"`
}

// Session is the token pair returned by sign-in, sign-up and refresh.
type Session struct {
	User         *User     `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type SignUpInput struct {
	Username string
	Password string
	// Email is optional; providers derive one from the username when empty.
	Email string
}

// Profile is a partial metadata update. Nil fields are left alone.
type Profile struct {
	Username  *string
	AvatarURL *string
	Bio       *string
	Website   *string
	Location  *string
	Skills    *[]string
	Social    *models.SocialLinks
}

type EventKind string

const (
	EventSignedIn       EventKind = "signed_in"
	EventSignedOut      EventKind = "signed_out"
	EventTokenRefreshed EventKind = "token_refreshed"
	EventUserUpdated    EventKind = "user_updated"
)

type Event struct {
	Kind   EventKind
	UserID string
}

// Provider is the external identity service. Every method may fail with a
// backend error whose message is meant for the user.
type Provider interface {
	SignIn(ctx context.Context, username, password string) (*Session, error)
	SignUp(ctx context.Context, in SignUpInput) (*Session, error)
	SignOut(ctx context.Context, refreshToken string) error
	Validate(ctx context.Context, accessToken string) (*User, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	UpdateProfile(ctx context.Context, userID string, p Profile) (*User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	// Subscribe registers fn for auth state events and returns a function that
	// removes it.
	Subscribe(fn func(Event)) (unsubscribe func())
}

type ctxKey struct{}

// ContextWithUser returns a copy of ctx carrying the acting user.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the acting user, or nil for anonymous callers.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxKey{}).(*User)
	return u
}
