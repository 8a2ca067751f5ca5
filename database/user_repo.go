package database

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/models"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db}
}

// Add inserts a new user. A taken username or email comes back as a 409.
func (r *UserRepo) Add(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return errs.NewDatabaseError("create", "user", err)
	}
	return nil
}

// FindByID returns a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, errs.NewDatabaseError("get", "user", err)
	}
	return &user, nil
}

// FindByUsername looks a user up through the username index. Usernames are
// stored lower-cased.
func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("username = ?", strings.ToLower(strings.TrimSpace(username))).
		First(&user).Error
	if err != nil {
		return nil, errs.NewDatabaseError("get", "user", err)
	}
	return &user, nil
}

// UsernameTaken reports whether another user already holds username.
func (r *UserRepo) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", strings.ToLower(strings.TrimSpace(username)))
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, errs.NewDatabaseError("count", "users", err)
	}
	return count > 0, nil
}

// Update writes the given columns of user id and returns the fresh row.
func (r *UserRepo) Update(ctx context.Context, id string, fields map[string]any) (*models.User, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, errs.NewDatabaseError("update", "user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.NewNotFound("user")
	}
	return r.FindByID(ctx, id)
}
