package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project is a showcased project. Rows are owned by AuthorID; IsPublic gates
// anonymous reads.
type Project struct {
	ID             string                      `json:"id" db:"id" gorm:"type:uuid;primaryKey;not null"`
	Name           string                      `json:"name" db:"name" gorm:"type:text;not null"`
	Description    string                      `json:"description" db:"description" gorm:"type:text;not null"`
	Content        string                      `json:"content,omitempty" db:"content" gorm:"type:text"`
	Image          string                      `json:"image" db:"image" gorm:"type:text"`
	Category       Category                    `json:"category" db:"category" gorm:"type:text;not null;index;check:chk_projects_category,category IN ('AI', 'Starter', 'Ecommerce', 'SaaS', 'Blog', 'Portfolio', 'Other')"`
	TechStack      datatypes.JSONSlice[string] `json:"tech_stack" db:"tech_stack" gorm:"not null"`
	Framework      string                      `json:"framework,omitempty" db:"framework" gorm:"type:text"`
	CSS            string                      `json:"css,omitempty" db:"css" gorm:"column:css;type:text"`
	Database       string                      `json:"database,omitempty" db:"database" gorm:"column:database;type:text"`
	RepoURL        string                      `json:"repo_url,omitempty" db:"repo_url" gorm:"type:text"`
	DemoURL        string                      `json:"demo_url,omitempty" db:"demo_url" gorm:"type:text"`
	DownloadURL    string                      `json:"download_url,omitempty" db:"download_url" gorm:"type:text"`
	IsDownloadable bool                        `json:"is_downloadable" db:"is_downloadable" gorm:"not null"`
	IsPublic       bool                        `json:"is_public" db:"is_public" gorm:"not null;index"`
	Featured       bool                        `json:"featured" db:"featured" gorm:"not null"`
	AuthorID       string                      `json:"author_id" db:"author_id" gorm:"type:text;not null;index"`
	CreatedAt      time.Time                   `json:"created_at" db:"created_at" gorm:"not null;index"`
	UpdatedAt      time.Time                   `json:"updated_at" db:"updated_at" gorm:"not null"`
}

func (Project) TableName() string {
	return "projects"
}

// BeforeCreate assigns the id and fills the defaults the table expects.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Category == "" {
		p.Category = CategoryOther
	}
	if p.TechStack == nil {
		p.TechStack = datatypes.JSONSlice[string]{}
	}
	return nil
}
