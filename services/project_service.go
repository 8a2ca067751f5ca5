package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/showcase-backend/database"
	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/identity"
	"github.com/rpupo63/showcase-backend/models"
)

const DefaultFeaturedLimit = 6

// ProjectService is the project repository as seen by one acting user. The
// user comes from the request context (identity.ContextWithUser); ownership
// and visibility are enforced by ProjectRepo's queries.
type ProjectService struct {
	projects *database.ProjectRepo
	logger   zerolog.Logger
}

func NewProjectService(db database.Database) *ProjectService {
	return &ProjectService{
		projects: db.ProjectRepo(),
		logger:   log.With().Str("component", "services.projects").Logger(),
	}
}

// Catalog is the public catalog page: filtered projects plus the number of
// public projects per category for the filter bar.
type Catalog struct {
	Projects   []*models.Project         `json:"projects"`
	Categories map[models.Category]int64 `json:"categories"`
	Total      int                       `json:"total"`
}

// ListPublic returns every public project, newest first.
func (s *ProjectService) ListPublic(ctx context.Context) ([]*models.Project, error) {
	projects, err := s.projects.FindPublic(ctx, database.ProjectFilter{})
	if err != nil {
		s.logger.Error().Err(err).Msg("listing public projects")
		return nil, err
	}
	return projects, nil
}

// ListOwn returns the acting user's projects, newest first. Without a session
// the result is empty and not an error.
func (s *ProjectService) ListOwn(ctx context.Context) ([]*models.Project, error) {
	user := identity.UserFromContext(ctx)
	if user == nil {
		return []*models.Project{}, nil
	}
	projects, err := s.projects.FindByAuthor(ctx, user.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("userID", user.ID).Msg("listing own projects")
		return nil, err
	}
	return projects, nil
}

// GetByID returns a project of the acting user regardless of visibility.
func (s *ProjectService) GetByID(ctx context.Context, id string) (*models.Project, error) {
	user := identity.UserFromContext(ctx)
	if user == nil {
		return nil, errs.Unauthenticated
	}
	if !validID(id) {
		return nil, errs.NewNotFound("project")
	}
	return s.projects.FindOwned(ctx, id, user.ID)
}

// GetPublicByID returns a public project. Missing, private and failed lookups
// all come back as the same not-found error; only the log tells them apart.
func (s *ProjectService) GetPublicByID(ctx context.Context, id string) (*models.Project, error) {
	if !validID(id) {
		return nil, errs.NewNotFound("project")
	}
	p, err := s.projects.FindPublicByID(ctx, id)
	if err != nil {
		if !errs.IsNotFound(err) {
			s.logger.Error().Err(err).Str("projectID", id).Msg("public project lookup failed")
		}
		return nil, errs.NewNotFound("project")
	}
	return p, nil
}

// Create stores a new project owned by the acting user.
//
// Parameters:
//   - in: the project fields; name and description are required, category
//     defaults to Other
//
// Returns:
//   - the stored project with its generated id and timestamps
//   - errs.Unauthenticated without a session, a validation error for bad
//     input, or the backend error
func (s *ProjectService) Create(ctx context.Context, in models.ProjectInput) (*models.Project, error) {
	user := identity.UserFromContext(ctx)
	if user == nil {
		return nil, errs.Unauthenticated
	}
	in.Normalize()
	if err := in.Validate(true); err != nil {
		return nil, err
	}

	p := in.NewProject(user.ID)
	if err := s.projects.Create(ctx, p); err != nil {
		s.logger.Error().Err(err).Str("userID", user.ID).Msg("creating project")
		return nil, err
	}
	s.logger.Info().Str("projectID", p.ID).Str("userID", user.ID).Msg("project created")
	return p, nil
}

// Update applies the present fields of in to a project of the acting user.
func (s *ProjectService) Update(ctx context.Context, id string, in models.ProjectInput) (*models.Project, error) {
	user := identity.UserFromContext(ctx)
	if user == nil {
		return nil, errs.Unauthenticated
	}
	if !validID(id) {
		return nil, errs.NewNotFound("project")
	}
	in.Normalize()
	if err := in.Validate(false); err != nil {
		return nil, err
	}

	p, err := s.projects.UpdateOwned(ctx, id, user.ID, in.Columns())
	if err != nil {
		if !errs.IsNotFound(err) {
			s.logger.Error().Err(err).Str("projectID", id).Msg("updating project")
		}
		return nil, err
	}
	return p, nil
}

// Delete permanently removes a project of the acting user.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	user := identity.UserFromContext(ctx)
	if user == nil {
		return errs.Unauthenticated
	}
	if !validID(id) {
		return errs.NewNotFound("project")
	}
	if err := s.projects.DeleteOwned(ctx, id, user.ID); err != nil {
		return err
	}
	s.logger.Info().Str("projectID", id).Str("userID", user.ID).Msg("project deleted")
	return nil
}

// TogglePublic sets only the visibility of a project.
func (s *ProjectService) TogglePublic(ctx context.Context, id string, public bool) (*models.Project, error) {
	return s.Update(ctx, id, models.ProjectInput{IsPublic: &public})
}

// Catalog returns the public projects matching f with per-category counts.
func (s *ProjectService) Catalog(ctx context.Context, f database.ProjectFilter) (*Catalog, error) {
	projects, err := s.projects.FindPublic(ctx, f)
	if err != nil {
		s.logger.Error().Err(err).Msg("listing catalog")
		return nil, err
	}
	counts, err := s.projects.CountPublicByCategory(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("counting catalog categories")
		return nil, err
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	return &Catalog{Projects: projects, Categories: counts, Total: len(projects)}, nil
}

// Featured returns up to limit featured public projects, newest first.
func (s *ProjectService) Featured(ctx context.Context, limit int) ([]*models.Project, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	projects, err := s.projects.FindPublic(ctx, database.ProjectFilter{FeaturedOnly: true, Limit: limit})
	if err != nil {
		s.logger.Error().Err(err).Msg("listing featured projects")
		return nil, err
	}
	return projects, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
