package models

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gorm.io/datatypes"

	"github.com/rpupo63/showcase-backend/errs"
)

// ProjectInput is the writable field set of a project. Nil fields are left
// untouched. The author always comes from the session.
type ProjectInput struct {
	Name           *string   `json:"name,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Content        *string   `json:"content,omitempty"`
	Image          *string   `json:"image,omitempty"`
	Category       *Category `json:"category,omitempty"`
	TechStack      *[]string `json:"tech_stack,omitempty"`
	Framework      *string   `json:"framework,omitempty"`
	CSS            *string   `json:"css,omitempty"`
	Database       *string   `json:"database,omitempty"`
	RepoURL        *string   `json:"repo_url,omitempty"`
	DemoURL        *string   `json:"demo_url,omitempty"`
	DownloadURL    *string   `json:"download_url,omitempty"`
	IsDownloadable *bool     `json:"is_downloadable,omitempty"`
	IsPublic       *bool     `json:"is_public,omitempty"`
	Featured       *bool     `json:"featured,omitempty"`
}

// Normalize trims text fields and canonicalises the category spelling.
func (in *ProjectInput) Normalize() {
	for _, f := range []*string{in.Name, in.Description, in.Image, in.Framework, in.CSS, in.Database, in.RepoURL, in.DemoURL, in.DownloadURL} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if in.Category != nil {
		if c, err := ParseCategory(string(*in.Category)); err == nil {
			*in.Category = c
		}
	}
	if in.TechStack != nil {
		stack := make([]string, 0, len(*in.TechStack))
		for _, t := range *in.TechStack {
			if t = strings.TrimSpace(t); t != "" {
				stack = append(stack, t)
			}
		}
		*in.TechStack = stack
	}
}

// Validate checks the input. On create the name and description are required;
// on update they may be omitted but not blanked.
func (in ProjectInput) Validate(creating bool) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name,
			validation.When(creating, validation.Required.Error("name is required")),
			validation.When(!creating && in.Name != nil, validation.Required.Error("name cannot be blank")),
			validation.Length(0, 200),
		),
		validation.Field(&in.Description,
			validation.When(creating, validation.Required.Error("description is required")),
			validation.When(!creating && in.Description != nil, validation.Required.Error("description cannot be blank")),
			validation.Length(0, 1000),
		),
		validation.Field(&in.Category, validation.In(categoryValues()...).Error("must be one of AI, Starter, Ecommerce, SaaS, Blog, Portfolio, Other")),
		validation.Field(&in.RepoURL, is.URL),
		validation.Field(&in.DemoURL, is.URL),
		validation.Field(&in.DownloadURL, is.URL),
	)
	return ValidationError(err)
}

// ValidationError converts ozzo validation errors into an errs.ApiErr keyed by
// JSON field name. Other errors pass through unchanged.
func ValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	reasons := make(map[string]string, len(verrs))
	for field, ferr := range verrs {
		fields = append(fields, field)
		reasons[field] = ferr.Error()
	}
	sort.Strings(fields)
	return errs.NewValidationErrors(fields, reasons)
}

// NewProject builds a project row from a validated create input.
func (in ProjectInput) NewProject(authorID string) *Project {
	p := &Project{AuthorID: authorID, Category: CategoryOther, TechStack: datatypes.JSONSlice[string]{}}
	for column, value := range in.Columns() {
		assignColumn(p, column, value)
	}
	return p
}

// Columns returns the present fields as a column → value map for partial
// updates. author_id, id and the timestamps can never appear here.
func (in ProjectInput) Columns() map[string]any {
	cols := map[string]any{}
	setString := func(col string, v *string) {
		if v != nil {
			cols[col] = *v
		}
	}
	setBool := func(col string, v *bool) {
		if v != nil {
			cols[col] = *v
		}
	}
	setString("name", in.Name)
	setString("description", in.Description)
	setString("content", in.Content)
	setString("image", in.Image)
	if in.Category != nil {
		cols["category"] = *in.Category
	}
	if in.TechStack != nil {
		cols["tech_stack"] = datatypes.JSONSlice[string](append([]string{}, *in.TechStack...))
	}
	setString("framework", in.Framework)
	setString("css", in.CSS)
	setString("database", in.Database)
	setString("repo_url", in.RepoURL)
	setString("demo_url", in.DemoURL)
	setString("download_url", in.DownloadURL)
	setBool("is_downloadable", in.IsDownloadable)
	setBool("is_public", in.IsPublic)
	setBool("featured", in.Featured)
	return cols
}

func assignColumn(p *Project, column string, value any) {
	switch column {
	case "name":
		p.Name = value.(string)
	case "description":
		p.Description = value.(string)
	case "content":
		p.Content = value.(string)
	case "image":
		p.Image = value.(string)
	case "category":
		p.Category = value.(Category)
	case "tech_stack":
		p.TechStack = value.(datatypes.JSONSlice[string])
	case "framework":
		p.Framework = value.(string)
	case "css":
		p.CSS = value.(string)
	case "database":
		p.Database = value.(string)
	case "repo_url":
		p.RepoURL = value.(string)
	case "demo_url":
		p.DemoURL = value.(string)
	case "download_url":
		p.DownloadURL = value.(string)
	case "is_downloadable":
		p.IsDownloadable = value.(bool)
	case "is_public":
		p.IsPublic = value.(bool)
	case "featured":
		p.Featured = value.(bool)
	}
}

func categoryValues() []any {
	values := make([]any, len(Categories))
	for i, c := range Categories {
		values[i] = c
	}
	return values
}
