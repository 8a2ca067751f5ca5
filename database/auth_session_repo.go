package database

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/rpupo63/showcase-backend/errs"
	"github.com/rpupo63/showcase-backend/models"
)

type AuthSessionRepo struct {
	db *gorm.DB
}

func NewAuthSessionRepo(db *gorm.DB) *AuthSessionRepo {
	return &AuthSessionRepo{db}
}

func (r *AuthSessionRepo) Add(ctx context.Context, session *models.AuthSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return errs.NewDatabaseError("create", "session", err)
	}
	return nil
}

func (r *AuthSessionRepo) FindByID(ctx context.Context, id string) (*models.AuthSession, error) {
	var session models.AuthSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, errs.NewDatabaseError("get", "session", err)
	}
	return &session, nil
}

func (r *AuthSessionRepo) FindByTokenHash(ctx context.Context, hash string) (*models.AuthSession, error) {
	var session models.AuthSession
	if err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&session).Error; err != nil {
		return nil, errs.NewDatabaseError("get", "session", err)
	}
	return &session, nil
}

// Rotate swaps the refresh token hash of an active session. It reports false
// when the session was revoked or already rotated away from oldHash.
func (r *AuthSessionRepo) Rotate(ctx context.Context, id, oldHash, newHash string, expiresAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.AuthSession{}).
		Where("id = ? AND token_hash = ? AND revoked_at IS NULL", id, oldHash).
		Updates(map[string]any{"token_hash": newHash, "expires_at": expiresAt})
	if res.Error != nil {
		return false, errs.NewDatabaseError("rotate", "session", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Revoke marks the session revoked. Revoking twice is not an error.
func (r *AuthSessionRepo) Revoke(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.AuthSession{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error
	if err != nil {
		return errs.NewDatabaseError("revoke", "session", err)
	}
	return nil
}

// RevokeAllForUser ends every session of userID except keepID.
func (r *AuthSessionRepo) RevokeAllForUser(ctx context.Context, userID, keepID string, at time.Time) error {
	q := r.db.WithContext(ctx).Model(&models.AuthSession{}).
		Where("user_id = ? AND revoked_at IS NULL", userID)
	if keepID != "" {
		q = q.Where("id <> ?", keepID)
	}
	if err := q.Update("revoked_at", at).Error; err != nil {
		return errs.NewDatabaseError("revoke", "sessions", err)
	}
	return nil
}
