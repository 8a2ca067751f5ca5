package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/showcase-backend/database"
	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/models"
	"github.com/rpupo63/showcase-backend/services"
)

type catalogHandler struct {
	responder Responder
	logger    zerolog.Logger
	projects  *services.ProjectService
}

func newCatalogHandler(projects *services.ProjectService) catalogHandler {
	logger := log.With().Str("handlerName", "catalogHandler").Logger()

	return catalogHandler{
		responder: NewResponder(logger),
		logger:    logger,
		projects:  projects,
	}
}

// getCatalog lists public projects
// @Summary Browse the catalog
// @Description Lists public projects, newest first, with per-category counts
// @Tags Catalog
// @Produce json
// @Param category query string false "Category (AI, Starter, Ecommerce, SaaS, Blog, Portfolio, Other)"
// @Param framework query string false "Framework, case-insensitive"
// @Param q query string false "Free-text search over name and description"
// @Success 200 {object} services.Catalog "Public projects"
// @Failure 400 {object} ErrorResponse "Bad Request - Unknown category"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching projects"
// @Router /projects [get]
func (h catalogHandler) getCatalog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filter := database.ProjectFilter{
			Framework: strings.TrimSpace(query.Get("framework")),
			Search:    strings.TrimSpace(query.Get("q")),
		}

		if raw := strings.TrimSpace(query.Get("category")); raw != "" && !strings.EqualFold(raw, "all") {
			category, err := models.ParseCategory(raw)
			if err != nil {
				h.responder.WriteError(w, errs.NewValidationError("category", err.Error()))
				return
			}
			filter.Category = category
		}

		catalog, err := h.projects.Catalog(r.Context(), filter)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, catalog)
	}
}

// getFeatured lists featured public projects
// @Summary Featured projects
// @Tags Catalog
// @Produce json
// @Param limit query int false "Maximum number of projects, default 6"
// @Success 200 {object} ProjectCollection "Featured projects"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching projects"
// @Router /projects/featured [get]
func (h catalogHandler) getFeatured() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				h.responder.WriteError(w, errs.NewValidationError("limit", "must be a positive integer"))
				return
			}
			limit = n
		}

		projects, err := h.projects.Featured(r.Context(), limit)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, collection(projects))
	}
}

// getProject retrieves a public project by ID
// @Summary Get public project
// @Description Missing and private projects are indistinguishable
// @Tags Catalog
// @Produce json
// @Param projectID path string true "Project ID" format(uuid)
// @Success 200 {object} models.Project "Project details"
// @Failure 404 {object} ErrorResponse "Not Found - Project not found"
// @Router /projects/{projectID} [get]
func (h catalogHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, err := h.projects.GetPublicByID(r.Context(), chi.URLParam(r, "projectID"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, project)
	}
}

func collection(projects []*models.Project) ProjectCollection {
	if projects == nil {
		projects = []*models.Project{}
	}
	return ProjectCollection{Projects: projects, Total: len(projects)}
}
