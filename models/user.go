package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SocialLinks is the fixed set of social profiles a user can list.
type SocialLinks struct {
	GitHub    string `json:"github,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Weibo     string `json:"weibo,omitempty"`
	WeChat    string `json:"wechat,omitempty"`
	Bilibili  string `json:"bilibili,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

// SocialPlatforms lists the keys of SocialLinks in display order.
var SocialPlatforms = []string{"github", "twitter", "linkedin", "weibo", "wechat", "bilibili", "youtube", "instagram"}

// Get returns the link stored for platform, or "" for an unknown platform.
func (s SocialLinks) Get(platform string) string {
	switch platform {
	case "github":
		return s.GitHub
	case "twitter":
		return s.Twitter
	case "linkedin":
		return s.LinkedIn
	case "weibo":
		return s.Weibo
	case "wechat":
		return s.WeChat
	case "bilibili":
		return s.Bilibili
	case "youtube":
		return s.YouTube
	case "instagram":
		return s.Instagram
	}
	return ""
}

// User is an identity of the built-in provider. Username is the login index;
// Email is set once at registration.
type User struct {
	ID           string                          `json:"id" db:"id" gorm:"type:uuid;primaryKey;not null"`
	Username     string                          `json:"username" db:"username" gorm:"type:text;not null;uniqueIndex:idx_users_username"`
	Email        string                          `json:"email" db:"email" gorm:"type:text;not null;uniqueIndex:idx_users_email"`
	PasswordHash string                          `json:"-" db:"password_hash" gorm:"type:text;not null"`
	AvatarURL    string                          `json:"avatar_url,omitempty" db:"avatar_url" gorm:"type:text"`
	Bio          string                          `json:"bio,omitempty" db:"bio" gorm:"type:text"`
	Website      string                          `json:"website,omitempty" db:"website" gorm:"type:text"`
	Location     string                          `json:"location,omitempty" db:"location" gorm:"type:text"`
	Skills       datatypes.JSONSlice[string]     `json:"skills" db:"skills" gorm:"not null"`
	Social       datatypes.JSONType[SocialLinks] `json:"social" db:"social" gorm:"not null"`
	CreatedAt    time.Time                       `json:"created_at" db:"created_at" gorm:"not null"`
	UpdatedAt    time.Time                       `json:"updated_at" db:"updated_at" gorm:"not null"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Skills == nil {
		u.Skills = datatypes.JSONSlice[string]{}
	}
	return nil
}

// AuthSession is one refresh-token session of the built-in provider. Only the
// SHA-256 of the refresh token is stored.
type AuthSession struct {
	ID        string     `json:"id" db:"id" gorm:"type:uuid;primaryKey;not null"`
	UserID    string     `json:"user_id" db:"user_id" gorm:"type:uuid;not null;index"`
	TokenHash string     `json:"-" db:"token_hash" gorm:"type:text;not null;uniqueIndex:idx_auth_sessions_token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at" gorm:"not null"`
	RevokedAt *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at" gorm:"not null"`
}

func (AuthSession) TableName() string {
	return "auth_sessions"
}

func (s *AuthSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Active reports whether the session can still mint access tokens at now.
func (s AuthSession) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// All lists every persisted model, in migration order.
func All() []any {
	return []any{&User{}, &AuthSession{}, &Project{}}
}
