package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/descope/go-sdk/descope"
	"github.com/descope/go-sdk/descope/client"
	"github.com/descope/go-sdk/descope/sdk"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/models"
)

// Custom attribute keys holding profile metadata on the Descope user.
const (
	attrUsername = "username"
	attrBio      = "bio"
	attrWebsite  = "website"
	attrLocation = "location"
	attrSkills   = "skills"
	attrSocial   = "social"

	descopeRefreshCookie = "DSR"
)

type DescopeConfig struct {
	ProjectID     string
	ManagementKey string
	EmailDomain   string
}

// Descope authenticates with Descope passwords, using the username as login id.
type Descope struct {
	auth        sdk.Authentication
	users       sdk.User
	emailDomain string
	events      Emitter
	logger      zerolog.Logger
}

func NewDescope(cfg DescopeConfig) (*Descope, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("DESCOPE_PROJECT_ID is required for the descope identity provider")
	}
	c, err := client.NewWithConfig(&client.Config{ProjectID: cfg.ProjectID, ManagementKey: cfg.ManagementKey})
	if err != nil {
		return nil, err
	}
	if cfg.EmailDomain == "" {
		cfg.EmailDomain = "local.app"
	}
	return &Descope{
		auth:        c.Auth,
		users:       c.Management.User(),
		emailDomain: cfg.EmailDomain,
		logger:      log.With().Str("component", "identity.descope").Logger(),
	}, nil
}

func (d *Descope) Subscribe(fn func(Event)) func() {
	return d.events.Subscribe(fn)
}

func (d *Descope) SignIn(ctx context.Context, username, password string) (*Session, error) {
	loginID := strings.ToLower(strings.TrimSpace(username))
	if loginID == "" || password == "" {
		return nil, errs.NewInvalidCredentialsError()
	}
	info, err := d.auth.Password().SignIn(ctx, loginID, password, nil)
	if err != nil {
		if descope.IsUnauthorizedError(err) {
			return nil, errs.NewInvalidCredentialsError()
		}
		return nil, errs.NewBackendError("descope", err)
	}
	session := sessionFromInfo(info)
	d.events.Emit(Event{Kind: EventSignedIn, UserID: session.User.ID})
	return session, nil
}

func (d *Descope) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	loginID := strings.TrimSpace(in.Username)
	if loginID == "" && email != "" {
		loginID, _, _ = strings.Cut(email, "@")
	}
	loginID = strings.ToLower(loginID)
	if !usernamePattern.MatchString(loginID) {
		return nil, errs.NewValidationError("username", "must be 3-32 characters of letters, digits, '.', '_' or '-'")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, errs.NewValidationError("password", "must be at least 6 characters")
	}
	if email == "" {
		email = loginID + "@" + d.emailDomain
	}

	info, err := d.auth.Password().SignUp(ctx, loginID, &descope.User{Name: loginID, Email: email}, in.Password, nil)
	if err != nil {
		if isDescopeConflict(err) {
			return nil, errs.NewUsernameTakenError(loginID)
		}
		return nil, errs.NewBackendError("descope", err)
	}
	if _, err := d.users.UpdatePicture(ctx, loginID, defaultAvatarURL+loginID); err != nil {
		d.logger.Warn().Err(err).Str("loginID", loginID).Msg("setting default avatar failed")
	}
	if _, err := d.users.UpdateCustomAttribute(ctx, loginID, attrUsername, loginID); err != nil {
		d.logger.Warn().Err(err).Str("loginID", loginID).Msg("setting username attribute failed")
	}
	session := sessionFromInfo(info)
	if session.User.Username == "" {
		session.User.Username = loginID
	}
	d.events.Emit(Event{Kind: EventSignedIn, UserID: session.User.ID})
	return session, nil
}

func (d *Descope) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := d.auth.Logout(refreshRequest(ctx, refreshToken), nil); err != nil {
		return errs.NewBackendError("descope", err)
	}
	d.events.Emit(Event{Kind: EventSignedOut, UserID: tokenSubject(refreshToken)})
	return nil
}

func (d *Descope) Validate(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, errs.NewMissingTokenError()
	}
	ok, token, err := d.auth.ValidateSessionWithToken(ctx, accessToken)
	if err != nil || !ok || token == nil {
		return nil, errs.NewInvalidTokenError(err)
	}
	res, err := d.users.LoadByUserID(ctx, token.ID)
	if err != nil {
		return nil, errs.NewBackendError("descope", err)
	}
	return userFromResponse(res), nil
}

func (d *Descope) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, errs.NewMissingTokenError()
	}
	ok, token, err := d.auth.RefreshSessionWithToken(ctx, refreshToken)
	if err != nil || !ok || token == nil {
		return nil, errs.NewSessionRevokedError()
	}
	res, err := d.users.LoadByUserID(ctx, token.ID)
	if err != nil {
		return nil, errs.NewBackendError("descope", err)
	}
	d.events.Emit(Event{Kind: EventTokenRefreshed, UserID: token.ID})
	return &Session{
		User:         userFromResponse(res),
		AccessToken:  token.JWT,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Unix(token.Expiration, 0),
	}, nil
}

func (d *Descope) UpdateProfile(ctx context.Context, userID string, p Profile) (*User, error) {
	res, err := d.users.LoadByUserID(ctx, userID)
	if err != nil {
		return nil, errs.NewBackendError("descope", err)
	}
	loginID := primaryLoginID(res)

	set := func(key string, value any) error {
		_, err := d.users.UpdateCustomAttribute(ctx, loginID, key, value)
		return err
	}

	if p.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*p.Username))
		if !usernamePattern.MatchString(username) {
			return nil, errs.NewValidationError("username", "must be 3-32 characters of letters, digits, '.', '_' or '-'")
		}
		if username != loginID {
			if _, err := d.users.UpdateLoginID(ctx, loginID, username); err != nil {
				if isDescopeConflict(err) {
					return nil, errs.NewUsernameTakenError(username)
				}
				return nil, errs.NewBackendError("descope", err)
			}
			loginID = username
		}
		if err := set(attrUsername, username); err != nil {
			return nil, errs.NewBackendError("descope", err)
		}
	}
	if p.AvatarURL != nil {
		if _, err := d.users.UpdatePicture(ctx, loginID, *p.AvatarURL); err != nil {
			return nil, errs.NewBackendError("descope", err)
		}
	}
	for key, value := range map[string]*string{attrBio: p.Bio, attrWebsite: p.Website, attrLocation: p.Location} {
		if value == nil {
			continue
		}
		if err := set(key, *value); err != nil {
			return nil, errs.NewBackendError("descope", err)
		}
	}
	if p.Skills != nil {
		raw, _ := json.Marshal(*p.Skills)
		if err := set(attrSkills, string(raw)); err != nil {
			return nil, errs.NewBackendError("descope", err)
		}
	}
	if p.Social != nil {
		raw, _ := json.Marshal(*p.Social)
		if err := set(attrSocial, string(raw)); err != nil {
			return nil, errs.NewBackendError("descope", err)
		}
	}

	res, err = d.users.LoadByUserID(ctx, userID)
	if err != nil {
		return nil, errs.NewBackendError("descope", err)
	}
	d.events.Emit(Event{Kind: EventUserUpdated, UserID: userID})
	return userFromResponse(res), nil
}

func (d *Descope) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < MinPasswordLength {
		return errs.NewValidationError("password", "must be at least 6 characters")
	}
	res, err := d.users.LoadByUserID(ctx, userID)
	if err != nil {
		return errs.NewBackendError("descope", err)
	}
	if _, err := d.auth.Password().ReplaceUserPassword(ctx, primaryLoginID(res), current, next, nil); err != nil {
		if descope.IsUnauthorizedError(err) {
			return errs.NewValidationError("current_password", "is incorrect")
		}
		return errs.NewBackendError("descope", err)
	}
	d.events.Emit(Event{Kind: EventUserUpdated, UserID: userID})
	return nil
}

// refreshRequest carries the refresh token the way the SDK looks for it.
func refreshRequest(ctx context.Context, refreshToken string) *http.Request {
	r, _ := http.NewRequestWithContext(ctx, http.MethodPost, "/", nil)
	r.AddCookie(&http.Cookie{Name: descopeRefreshCookie, Value: refreshToken})
	r.Header.Set("Authorization", "Bearer "+refreshToken)
	return r
}

// tokenSubject reads the user id of a Descope JWT without verifying it. The
// token has already been accepted or rejected by Descope at this point.
func tokenSubject(token string) string {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return ""
	}
	return claims.Subject
}

func isDescopeConflict(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "already in use")
}

func sessionFromInfo(info *descope.AuthenticationInfo) *Session {
	s := &Session{User: &User{Skills: []string{}}}
	if info == nil {
		return s
	}
	if info.User != nil {
		s.User = userFromResponse(info.User)
	}
	if info.SessionToken != nil {
		s.AccessToken = info.SessionToken.JWT
		s.ExpiresAt = time.Unix(info.SessionToken.Expiration, 0)
		if s.User.ID == "" {
			s.User.ID = info.SessionToken.ID
		}
	}
	if info.RefreshToken != nil {
		s.RefreshToken = info.RefreshToken.JWT
	}
	return s
}

func primaryLoginID(res *descope.UserResponse) string {
	if len(res.LoginIDs) > 0 {
		return res.LoginIDs[0]
	}
	return res.UserID
}

func userFromResponse(res *descope.UserResponse) *User {
	u := &User{
		ID:        res.UserID,
		Email:     res.Email,
		Username:  primaryLoginID(res),
		AvatarURL: res.Picture,
		Skills:    []string{},
	}
	attrs := res.CustomAttributes
	if v, ok := attrs[attrUsername].(string); ok && v != "" {
		u.Username = v
	}
	u.Bio, _ = attrs[attrBio].(string)
	u.Website, _ = attrs[attrWebsite].(string)
	u.Location, _ = attrs[attrLocation].(string)
	if raw, ok := attrs[attrSkills].(string); ok && raw != "" {
		_ = json.Unmarshal([]byte(raw), &u.Skills)
	}
	if raw, ok := attrs[attrSocial].(string); ok && raw != "" {
		var social models.SocialLinks
		if json.Unmarshal([]byte(raw), &social) == nil {
			u.Social = social
		}
	}
	return u
}
