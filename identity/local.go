package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"

	"github.com/rpupo63/showcase-backend/database"
	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/models"
)

const (
	MinPasswordLength = 6
	defaultAvatarURL  = "https://api.dicebear.com/7.x/avataaars/svg?seed="
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

type LocalConfig struct {
	Secret      []byte
	Issuer      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	EmailDomain string
	Hashing     Argon2Params
}

// Local is the built-in provider: users and refresh sessions live in the
// application database.
type Local struct {
	users    *database.UserRepo
	sessions *database.AuthSessionRepo
	hasher   *PasswordHasher
	tokens   *TokenIssuer
	cfg      LocalConfig
	events   Emitter
	now      func() time.Time
	logger   zerolog.Logger
}

func NewLocal(db database.Database, cfg LocalConfig) (*Local, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("JWT_SECRET is required for the local identity provider")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "showcase"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = "local.app"
	}
	if cfg.Hashing == (Argon2Params{}) {
		cfg.Hashing = DefaultArgon2Params()
	}
	return &Local{
		users:    db.UserRepo(),
		sessions: db.AuthSessionRepo(),
		hasher:   NewPasswordHasher(cfg.Hashing),
		tokens:   NewTokenIssuer(cfg.Secret, cfg.Issuer, cfg.AccessTTL),
		cfg:      cfg,
		now:      time.Now,
		logger:   log.With().Str("component", "identity.local").Logger(),
	}, nil
}

func (l *Local) Subscribe(fn func(Event)) func() {
	return l.events.Subscribe(fn)
}

func (l *Local) SignIn(ctx context.Context, username, password string) (*Session, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, errs.NewInvalidCredentialsError()
	}
	user, err := l.users.FindByUsername(ctx, username)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.NewInvalidCredentialsError()
		}
		return nil, err
	}
	if !l.hasher.Verify(password, user.PasswordHash) {
		return nil, errs.NewInvalidCredentialsError()
	}

	session, err := l.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	l.logger.Info().Str("userID", user.ID).Msg("signed in")
	l.events.Emit(Event{Kind: EventSignedIn, UserID: user.ID})
	return session, nil
}

func (l *Local) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)
	if username == "" && email != "" {
		username, _, _ = strings.Cut(email, "@")
	}
	username = strings.ToLower(username)

	if !usernamePattern.MatchString(username) {
		return nil, errs.NewValidationError("username", "must be 3-32 characters of letters, digits, '.', '_' or '-'")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, errs.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if email == "" {
		email = username + "@" + l.cfg.EmailDomain
	}

	taken, err := l.users.UsernameTaken(ctx, username, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errs.NewUsernameTakenError(username)
	}

	hash, err := l.hasher.Hash(in.Password)
	if err != nil {
		return nil, errs.NewInternalErrorWithCause("hashing password", err)
	}
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		AvatarURL:    defaultAvatarURL + url.QueryEscape(username),
		Skills:       datatypes.JSONSlice[string]{},
	}
	if err := l.users.Add(ctx, user); err != nil {
		return nil, err
	}

	session, err := l.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	l.logger.Info().Str("userID", user.ID).Str("username", username).Msg("registered")
	l.events.Emit(Event{Kind: EventSignedIn, UserID: user.ID})
	return session, nil
}

// SignOut revokes the session behind refreshToken. Unknown tokens are ignored.
func (l *Local) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	s, err := l.sessions.FindByTokenHash(ctx, hashToken(refreshToken))
	if err != nil {
		if errs.IsNotFound(err) {
			return nil
		}
		return err
	}
	if err := l.sessions.Revoke(ctx, s.ID, l.now()); err != nil {
		return err
	}
	l.events.Emit(Event{Kind: EventSignedOut, UserID: s.UserID})
	return nil
}

func (l *Local) Validate(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, errs.NewMissingTokenError()
	}
	userID, sessionID, err := l.tokens.Parse(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errs.NewExpiredTokenError()
		}
		return nil, errs.NewInvalidTokenError(err)
	}

	s, err := l.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.NewSessionRevokedError()
		}
		return nil, err
	}
	if !s.Active(l.now()) || s.UserID != userID {
		return nil, errs.NewSessionRevokedError()
	}

	user, err := l.users.FindByID(ctx, userID)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.NewInvalidTokenError(err)
		}
		return nil, err
	}
	return toUser(user), nil
}

// Refresh rotates the refresh token and mints a new access token. A refresh
// token can be used once.
func (l *Local) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, errs.NewMissingTokenError()
	}
	oldHash := hashToken(refreshToken)
	s, err := l.sessions.FindByTokenHash(ctx, oldHash)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.NewSessionRevokedError()
		}
		return nil, err
	}
	now := l.now()
	if !s.Active(now) {
		return nil, errs.NewSessionRevokedError()
	}

	user, err := l.users.FindByID(ctx, s.UserID)
	if err != nil {
		return nil, err
	}

	next, err := newRefreshToken()
	if err != nil {
		return nil, errs.NewInternalErrorWithCause("generating refresh token", err)
	}
	ok, err := l.sessions.Rotate(ctx, s.ID, oldHash, hashToken(next), now.Add(l.cfg.RefreshTTL))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NewSessionRevokedError()
	}

	access, expires, err := l.tokens.Issue(user.ID, user.Username, s.ID, now)
	if err != nil {
		return nil, errs.NewInternalErrorWithCause("signing access token", err)
	}
	l.events.Emit(Event{Kind: EventTokenRefreshed, UserID: user.ID})
	return &Session{User: toUser(user), AccessToken: access, RefreshToken: next, ExpiresAt: expires}, nil
}

func (l *Local) UpdateProfile(ctx context.Context, userID string, p Profile) (*User, error) {
	fields := map[string]any{"updated_at": l.now()}
	if p.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*p.Username))
		if !usernamePattern.MatchString(username) {
			return nil, errs.NewValidationError("username", "must be 3-32 characters of letters, digits, '.', '_' or '-'")
		}
		taken, err := l.users.UsernameTaken(ctx, username, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, errs.NewUsernameTakenError(username)
		}
		fields["username"] = username
	}
	if p.AvatarURL != nil {
		fields["avatar_url"] = *p.AvatarURL
	}
	if p.Bio != nil {
		fields["bio"] = *p.Bio
	}
	if p.Website != nil {
		fields["website"] = *p.Website
	}
	if p.Location != nil {
		fields["location"] = *p.Location
	}
	if p.Skills != nil {
		fields["skills"] = datatypes.JSONSlice[string](append([]string{}, *p.Skills...))
	}
	if p.Social != nil {
		fields["social"] = datatypes.NewJSONType(*p.Social)
	}

	user, err := l.users.Update(ctx, userID, fields)
	if err != nil {
		return nil, err
	}
	l.events.Emit(Event{Kind: EventUserUpdated, UserID: userID})
	return toUser(user), nil
}

// ChangePassword replaces the password after checking the current one. Other
// sessions of the user are not revoked.
func (l *Local) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < MinPasswordLength {
		return errs.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	user, err := l.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !l.hasher.Verify(current, user.PasswordHash) {
		return errs.NewValidationError("current_password", "is incorrect")
	}
	hash, err := l.hasher.Hash(next)
	if err != nil {
		return errs.NewInternalErrorWithCause("hashing password", err)
	}
	if _, err := l.users.Update(ctx, userID, map[string]any{"password_hash": hash, "updated_at": l.now()}); err != nil {
		return err
	}
	l.events.Emit(Event{Kind: EventUserUpdated, UserID: userID})
	return nil
}

func (l *Local) startSession(ctx context.Context, user *models.User) (*Session, error) {
	refresh, err := newRefreshToken()
	if err != nil {
		return nil, errs.NewInternalErrorWithCause("generating refresh token", err)
	}
	now := l.now()
	s := &models.AuthSession{
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: now.Add(l.cfg.RefreshTTL),
	}
	if err := l.sessions.Add(ctx, s); err != nil {
		return nil, err
	}
	access, expires, err := l.tokens.Issue(user.ID, user.Username, s.ID, now)
	if err != nil {
		return nil, errs.NewInternalErrorWithCause("signing access token", err)
	}
	return &Session{User: toUser(user), AccessToken: access, RefreshToken: refresh, ExpiresAt: expires}, nil
}

func toUser(u *models.User) *User {
	skills := []string(u.Skills)
	if skills == nil {
		skills = []string{}
	}
	return &User{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		Bio:       u.Bio,
		Website:   u.Website,
		Location:  u.Location,
		Skills:    skills,
		Social:    u.Social.Data(),
	}
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
