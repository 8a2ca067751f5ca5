package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/showcase-backend/errs"
)

func ptr[T any](v T) *T { return &v }

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{in: "AI", want: CategoryAI},
		{in: "saas", want: CategorySaaS},
		{in: " ecommerce ", want: CategoryEcommerce},
		{in: "Portfolio", want: CategoryPortfolio},
		{in: "games", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestCategoryCheckMatchesColumnTag(t *testing.T) {
	tag := reflectTag(t, Project{}, "Category")
	assert.Contains(t, tag, categoryCheck())
}

func TestProjectInputValidate(t *testing.T) {
	tests := []struct {
		name      string
		in        ProjectInput
		creating  bool
		wantField string
	}{
		{
			name:     "minimal create",
			in:       ProjectInput{Name: ptr("Demo"), Description: ptr("A demo")},
			creating: true,
		},
		{
			name:      "create without name",
			in:        ProjectInput{Description: ptr("A demo")},
			creating:  true,
			wantField: "name",
		},
		{
			name:      "create with blank description",
			in:        ProjectInput{Name: ptr("Demo"), Description: ptr("")},
			creating:  true,
			wantField: "description",
		},
		{
			name:     "update omitting name",
			in:       ProjectInput{Featured: ptr(true)},
			creating: false,
		},
		{
			name:      "update blanking name",
			in:        ProjectInput{Name: ptr("")},
			creating:  false,
			wantField: "name",
		},
		{
			name:      "unknown category",
			in:        ProjectInput{Name: ptr("Demo"), Description: ptr("A demo"), Category: ptr(Category("Games"))},
			creating:  true,
			wantField: "category",
		},
		{
			name:      "bad repo url",
			in:        ProjectInput{RepoURL: ptr("not a url")},
			wantField: "repo_url",
		},
		{
			name: "good urls",
			in:   ProjectInput{RepoURL: ptr("https://github.com/acme/demo"), DemoURL: ptr("https://demo.acme.dev")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate(tt.creating)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errs.IsValidationError(err))
			var apiErr *errs.ApiErr
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantField, apiErr.Field)
		})
	}
}

func TestProjectInputNormalize(t *testing.T) {
	in := ProjectInput{
		Name:      ptr("  Demo  "),
		Category:  ptr(Category("blog")),
		TechStack: &[]string{" Go ", "", "React"},
	}
	in.Normalize()

	assert.Equal(t, "Demo", *in.Name)
	assert.Equal(t, CategoryBlog, *in.Category)
	assert.Equal(t, []string{"Go", "React"}, *in.TechStack)
}

func TestProjectInputColumns(t *testing.T) {
	in := ProjectInput{Name: ptr("Demo"), IsPublic: ptr(false), TechStack: &[]string{}}
	cols := in.Columns()

	assert.Len(t, cols, 3)
	assert.Equal(t, "Demo", cols["name"])
	assert.Equal(t, false, cols["is_public"])
	assert.NotContains(t, cols, "author_id")
	assert.NotContains(t, cols, "description")
}

func TestNewProject(t *testing.T) {
	in := ProjectInput{
		Name:        ptr("Demo"),
		Description: ptr("A demo"),
		Category:    ptr(CategoryBlog),
		TechStack:   &[]string{"Go"},
		IsPublic:    ptr(true),
	}
	p := in.NewProject("user-1")

	assert.Equal(t, "user-1", p.AuthorID)
	assert.Equal(t, "Demo", p.Name)
	assert.Equal(t, CategoryBlog, p.Category)
	assert.Equal(t, []string{"Go"}, []string(p.TechStack))
	assert.True(t, p.IsPublic)
}

func TestNewProjectDefaultsCategory(t *testing.T) {
	p := ProjectInput{Name: ptr("Demo"), Description: ptr("A demo")}.NewProject("u")
	assert.Equal(t, CategoryOther, p.Category)
	assert.NotNil(t, p.TechStack)
}
