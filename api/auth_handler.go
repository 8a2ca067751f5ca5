package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/showcase-backend/auth"
	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/identity"
)

type authHandler struct {
	responder Responder
	logger    zerolog.Logger
	provider  identity.Provider
	newStore  func() auth.TokenStore
}

func newAuthHandler(provider identity.Provider) authHandler {
	logger := log.With().Str("handlerName", "authHandler").Logger()

	return authHandler{
		responder: NewResponder(logger),
		logger:    logger,
		provider:  provider,
		newStore:  func() auth.TokenStore { return auth.NewMemoryStore() },
	}
}

// session runs one request's worth of session handling. The tokens live in
// memory only; the client keeps them between requests.
func (h authHandler) session(ctx context.Context, tokens auth.Tokens) (*auth.Manager, auth.TokenStore, error) {
	store := h.newStore()
	if !tokens.Empty() {
		if err := store.Save(ctx, tokens); err != nil {
			return nil, nil, errs.NewInternalErrorWithCause("storing request session", err)
		}
	}
	return auth.NewManager(h.provider, store), store, nil
}

func (h authHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, user *identity.User, store auth.TokenStore) {
	tokens, err := store.Load(r.Context())
	if err != nil {
		h.responder.WriteError(w, err)
		return
	}
	h.responder.WriteJSONStatus(w, status, SessionResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
	})
}

// login signs a user in
// @Summary Log in
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body credentialsRequest true "Username and password"
// @Success 200 {object} SessionResponse "New session"
// @Failure 401 {object} ErrorResponse "Unauthorized - Invalid username or password"
// @Router /auth/login [post]
func (h authHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		manager, store, err := h.session(r.Context(), auth.Tokens{})
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		user, err := manager.Login(r.Context(), req.Username, req.Password)
		RecordAuthAttempt("login", err == nil)
		if err != nil {
			h.logger.Info().Str("username", req.Username).Err(err).Msg("login failed")
			h.responder.WriteError(w, err)
			return
		}

		h.writeSession(w, r, http.StatusOK, user, store)
	}
}

// register creates an account and signs it in
// @Summary Register
// @Description The email is optional; the username falls back to the email's local part
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body credentialsRequest true "Username, password and optional email"
// @Success 201 {object} SessionResponse "New session"
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid username or password"
// @Failure 409 {object} ErrorResponse "Conflict - Username already taken"
// @Router /auth/register [post]
func (h authHandler) register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		manager, store, err := h.session(r.Context(), auth.Tokens{})
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		user, err := manager.Register(r.Context(), req.Username, req.Password, req.Email)
		RecordAuthAttempt("register", err == nil)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.writeSession(w, r, http.StatusCreated, user, store)
	}
}

// refresh exchanges a refresh token for a new session
// @Summary Refresh session
// @Description The refresh token is single use; the response carries its replacement
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body refreshRequest true "Refresh token"
// @Success 200 {object} SessionResponse "Rotated session"
// @Failure 401 {object} ErrorResponse "Unauthorized - Invalid or revoked refresh token"
// @Router /auth/refresh [post]
func (h authHandler) refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if req.RefreshToken == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("refresh_token"))
			return
		}

		manager, store, err := h.session(r.Context(), auth.Tokens{RefreshToken: req.RefreshToken})
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		user, err := manager.Refresh(r.Context())
		RecordAuthAttempt("refresh", err == nil)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.writeSession(w, r, http.StatusOK, user, store)
	}
}

// logout revokes a session
// @Summary Log out
// @Tags Auth
// @Accept json
// @Param body body refreshRequest true "Refresh token of the session to end"
// @Success 204 "No Content"
// @Failure 502 {object} ErrorResponse "Identity provider failed"
// @Router /auth/logout [post]
func (h authHandler) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if req.RefreshToken == "" {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("refresh_token"))
			return
		}

		manager, _, err := h.session(r.Context(), auth.Tokens{RefreshToken: req.RefreshToken})
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := manager.Logout(r.Context()); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// me returns the signed-in user
// @Summary Current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} identity.User "Signed-in user"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /auth/me [get]
func (h authHandler) me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := ctxGetUser(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, user)
	}
}
