package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/models"
	"github.com/rpupo63/showcase-backend/notify"
	"github.com/rpupo63/showcase-backend/services"
)

type adminProjectHandler struct {
	responder Responder
	logger    zerolog.Logger
	projects  *services.ProjectService
	notices   *notify.Hub
}

func newAdminProjectHandler(projects *services.ProjectService, notices *notify.Hub) adminProjectHandler {
	logger := log.With().Str("handlerName", "adminProjectHandler").Logger()

	return adminProjectHandler{
		responder: NewResponder(logger),
		logger:    logger,
		projects:  projects,
		notices:   notices,
	}
}

// fail writes err and mirrors it to the user's notification stream.
func (h adminProjectHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if user, uerr := ctxGetUser(r.Context()); uerr == nil {
		h.notices.Error(user.ID, noticeText(err))
	}
	h.responder.WriteError(w, err)
}

func (h adminProjectHandler) succeed(r *http.Request, message string) {
	if user, err := ctxGetUser(r.Context()); err == nil {
		h.notices.Success(user.ID, message)
	}
}

// listProjects lists the author's projects
// @Summary List own projects
// @Description Lists every project of the signed-in user, public or not
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ProjectCollection "Own projects"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /admin/projects [get]
func (h adminProjectHandler) listProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := h.projects.ListOwn(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, collection(projects))
	}
}

// getProject retrieves one of the author's projects
// @Summary Get own project
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} models.Project "Project details"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Router /admin/projects/{projectID} [get]
func (h adminProjectHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := h.projects.GetByID(r.Context(), chi.URLParam(r, "projectID"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, project)
	}
}

// createProject creates a new project
// @Summary Create project
// @Description Creates a project owned by the signed-in user
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param project body models.ProjectInput true "Project data"
// @Success 201 {object} models.Project "Created project"
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid project data"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error creating project"
// @Router /admin/projects [post]
func (h adminProjectHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input models.ProjectInput
		if err := decodeJSON(w, r, &input); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to decode project request body")
			h.fail(w, r, err)
			return
		}

		project, err := h.projects.Create(r.Context(), input)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		h.succeed(r, "Project created")
		h.responder.WriteJSONStatus(w, http.StatusCreated, project)
	}
}

// updateProject updates one of the author's projects
// @Summary Update project
// @Description Applies the fields present in the body; absent fields are untouched
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID" format(uuid)
// @Param project body models.ProjectInput true "Changed fields"
// @Success 200 {object} models.Project "Updated project"
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid project data"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Router /admin/projects/{projectID} [put]
func (h adminProjectHandler) updateProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input models.ProjectInput
		if err := decodeJSON(w, r, &input); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to decode project request body")
			h.fail(w, r, err)
			return
		}

		project, err := h.projects.Update(r.Context(), chi.URLParam(r, "projectID"), input)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		h.succeed(r, "Project updated")
		h.responder.WriteJSON(w, project)
	}
}

// setVisibility publishes or unpublishes a project
// @Summary Toggle visibility
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param projectID path string true "Project ID" format(uuid)
// @Param body body visibilityRequest true "New visibility"
// @Success 200 {object} models.Project "Updated project"
// @Failure 400 {object} ErrorResponse "Bad Request - is_public missing"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Router /admin/projects/{projectID}/visibility [put]
func (h adminProjectHandler) setVisibility() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req visibilityRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
		if req.IsPublic == nil {
			h.fail(w, r, errs.NewMissingRequiredFieldError("is_public"))
			return
		}

		project, err := h.projects.TogglePublic(r.Context(), chi.URLParam(r, "projectID"), *req.IsPublic)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		if project.IsPublic {
			h.succeed(r, "Project published")
		} else {
			h.succeed(r, "Project unpublished")
		}
		h.responder.WriteJSON(w, project)
	}
}

// deleteProject deletes one of the author's projects
// @Summary Delete project
// @Tags Admin
// @Security BearerAuth
// @Param projectID path string true "Project ID" format(uuid)
// @Success 204 "No Content"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Router /admin/projects/{projectID} [delete]
func (h adminProjectHandler) deleteProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.projects.Delete(r.Context(), chi.URLParam(r, "projectID")); err != nil {
			h.fail(w, r, err)
			return
		}

		h.succeed(r, "Project deleted")
		w.WriteHeader(http.StatusNoContent)
	}
}
