package database

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/models"
)

// ProjectFilter narrows catalog reads. Zero values mean "no filter".
type ProjectFilter struct {
	Category     models.Category
	Framework    string
	Search       string
	FeaturedOnly bool
	Limit        int
}

// ProjectRepo owns every read and write of the projects table. Visibility and
// ownership are part of each query, so callers cannot reach rows they may not see.
type ProjectRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db: db, now: time.Now}
}

// writableColumns are the columns UpdateOwned may touch.
var writableColumns = map[string]bool{
	"name": true, "description": true, "content": true, "image": true,
	"category": true, "tech_stack": true, "framework": true, "css": true,
	"database": true, "repo_url": true, "demo_url": true, "download_url": true,
	"is_downloadable": true, "is_public": true, "featured": true,
}

// likeEscaper makes search text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// FindPublic returns public projects, newest first. It may be served by the
// read replica.
func (r *ProjectRepo) FindPublic(ctx context.Context, f ProjectFilter) ([]*models.Project, error) {
	q := onReplica(r.db.WithContext(ctx)).Where("is_public = ?", true)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Framework != "" {
		q = q.Where("LOWER(framework) = ?", strings.ToLower(f.Framework))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, like, like)
	}
	if f.FeaturedOnly {
		q = q.Where("featured = ?", true)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var projects []*models.Project
	if err := q.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, errs.NewDatabaseError("list", "projects", err)
	}
	return projects, nil
}

// FindByAuthor returns every project of authorID, newest first.
func (r *ProjectRepo) FindByAuthor(ctx context.Context, authorID string) ([]*models.Project, error) {
	var projects []*models.Project
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, errs.NewDatabaseError("list", "projects", err)
	}
	return projects, nil
}

// FindOwned returns the project with id when authorID owns it.
func (r *ProjectRepo) FindOwned(ctx context.Context, id, authorID string) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Where("id = ? AND author_id = ?", id, authorID).
		First(&project).Error
	if err != nil {
		return nil, errs.NewDatabaseError("get", "project", err)
	}
	return &project, nil
}

// FindPublicByID returns the project with id when it is public.
func (r *ProjectRepo) FindPublicByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_public = ?", id, true).
		First(&project).Error
	if err != nil {
		return nil, errs.NewDatabaseError("get", "project", err)
	}
	return &project, nil
}

// Create inserts project; id and timestamps are filled in.
func (r *ProjectRepo) Create(ctx context.Context, project *models.Project) error {
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return errs.NewDatabaseError("create", "project", err)
	}
	return nil
}

// UpdateOwned writes fields to the project with id owned by authorID and
// returns the updated row. Unknown and protected columns are ignored.
func (r *ProjectRepo) UpdateOwned(ctx context.Context, id, authorID string, fields map[string]any) (*models.Project, error) {
	updates := make(map[string]any, len(fields)+1)
	for col, v := range fields {
		if writableColumns[col] {
			updates[col] = v
		}
	}
	updates["updated_at"] = r.now()

	res := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND author_id = ?", id, authorID).
		Updates(updates)
	if res.Error != nil {
		return nil, errs.NewDatabaseError("update", "project", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.NewNotFound("project")
	}
	return r.FindOwned(ctx, id, authorID)
}

// DeleteOwned removes the project with id owned by authorID.
func (r *ProjectRepo) DeleteOwned(ctx context.Context, id, authorID string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND author_id = ?", id, authorID).
		Delete(&models.Project{})
	if res.Error != nil {
		return errs.NewDatabaseError("delete", "project", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NewNotFound("project")
	}
	return nil
}

// CountPublicByCategory returns how many public projects each category holds.
// Categories without projects are absent.
func (r *ProjectRepo) CountPublicByCategory(ctx context.Context) (map[models.Category]int64, error) {
	var rows []struct {
		Category models.Category
		Count    int64
	}
	err := onReplica(r.db.WithContext(ctx)).
		Model(&models.Project{}).
		Select("category, COUNT(*) AS count").
		Where("is_public = ?", true).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, errs.NewDatabaseError("count", "projects", err)
	}

	counts := make(map[models.Category]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Count
	}
	return counts, nil
}
