package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/identity"
	"github.com/rpupo63/showcase-backend/models"
	"github.com/rpupo63/showcase-backend/notify"
	"github.com/rpupo63/showcase-backend/services"
	"github.com/rpupo63/showcase-backend/storage"
)

type accountHandler struct {
	responder     Responder
	logger        zerolog.Logger
	accounts      *services.AccountService
	notices       *notify.Hub
	avatarLimitMB int
}

func newAccountHandler(accounts *services.AccountService, notices *notify.Hub, avatarLimitMB int) accountHandler {
	logger := log.With().Str("handlerName", "accountHandler").Logger()

	return accountHandler{
		responder:     NewResponder(logger),
		logger:        logger,
		accounts:      accounts,
		notices:       notices,
		avatarLimitMB: avatarLimitMB,
	}
}

// finish writes the outcome of an account change and mirrors it to the
// user's notification stream.
func (h accountHandler) finish(w http.ResponseWriter, r *http.Request, user *identity.User, err error, success string) {
	actor, _ := ctxGetUser(r.Context())
	if err != nil {
		if actor != nil {
			h.notices.Error(actor.ID, noticeText(err))
		}
		h.responder.WriteError(w, err)
		return
	}
	if actor != nil {
		h.notices.Success(actor.ID, success)
	}
	if user == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.responder.WriteJSON(w, user)
}

// getAccount returns the signed-in user's account
// @Summary Get account
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} identity.User "Account"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /account [get]
func (h accountHandler) getAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.accounts.Profile(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, user)
	}
}

// updateProfile changes username, bio, website and location
// @Summary Update profile
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param profile body services.ProfileInput true "Changed fields"
// @Success 200 {object} identity.User "Updated account"
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid profile data"
// @Failure 409 {object} ErrorResponse "Conflict - Username already taken"
// @Router /account/profile [put]
func (h accountHandler) updateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input services.ProfileInput
		if err := decodeJSON(w, r, &input); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user, err := h.accounts.UpdateProfile(r.Context(), input)
		h.finish(w, r, user, err, "Profile updated")
	}
}

// updateSkills replaces the skill list
// @Summary Update skills
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body skillsRequest true "Skills"
// @Success 200 {object} identity.User "Updated account"
// @Router /account/skills [put]
func (h accountHandler) updateSkills() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req skillsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user, err := h.accounts.SetSkills(r.Context(), req.Skills)
		h.finish(w, r, user, err, "Skills updated")
	}
}

// updateSocial replaces the social links
// @Summary Update social links
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body models.SocialLinks true "Social links"
// @Success 200 {object} identity.User "Updated account"
// @Router /account/social [put]
func (h accountHandler) updateSocial() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var social models.SocialLinks
		if err := decodeJSON(w, r, &social); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		user, err := h.accounts.SetSocial(r.Context(), social)
		h.finish(w, r, user, err, "Social links updated")
	}
}

// changePassword changes the password
// @Summary Change password
// @Tags Account
// @Accept json
// @Security BearerAuth
// @Param body body passwordRequest true "Current, new and confirmed password"
// @Success 204 "No Content"
// @Failure 400 {object} ErrorResponse "Bad Request - Passwords missing, mismatched or too short"
// @Router /account/password [put]
func (h accountHandler) changePassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req passwordRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		err := h.accounts.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
		h.finish(w, r, nil, err, "Password changed")
	}
}

// uploadAvatar replaces the avatar
// @Summary Upload avatar
// @Description The image is resized to fit 400x400 before it is stored
// @Tags Account
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Image (jpeg, png, gif or webp)"
// @Success 200 {object} identity.User "Updated account"
// @Failure 400 {object} ErrorResponse "Bad Request - Image too large"
// @Failure 415 {object} ErrorResponse "Unsupported Media Type"
// @Router /account/avatar [post]
func (h accountHandler) uploadAvatar() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := int64(h.avatarLimitMB) << 20
		// Leave room for the multipart envelope so an image at the limit still parses.
		r.Body = http.MaxBytesReader(w, r.Body, limit+maxRequestBody)
		if err := r.ParseMultipartForm(limit); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.responder.WriteError(w, errs.NewMaxBodySizeExceededError(tooLarge.Limit))
				return
			}
			h.responder.WriteError(w, errs.NewMalformedPayloadError("multipart form", err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		_, header, err := r.FormFile("file")
		if err != nil {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("file"))
			return
		}

		user, err := h.accounts.UploadAvatar(r.Context(), storage.FileFromMultipart(header))
		h.finish(w, r, user, err, "Avatar updated")
	}
}
