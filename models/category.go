package models

import (
	"fmt"
	"strings"
)

// Category is the fixed set of showcase categories. The projects table carries a
// CHECK constraint over the same values.
type Category string

const (
	CategoryAI        Category = "AI"
	CategoryStarter   Category = "Starter"
	CategoryEcommerce Category = "Ecommerce"
	CategorySaaS      Category = "SaaS"
	CategoryBlog      Category = "Blog"
	CategoryPortfolio Category = "Portfolio"
	CategoryOther     Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryAI,
	CategoryStarter,
	CategoryEcommerce,
	CategorySaaS,
	CategoryBlog,
	CategoryPortfolio,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory maps a case-insensitive name ("saas", "SaaS") to its Category.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, known := range Categories {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// categoryCheck is the SQL CHECK expression for projects.category.
func categoryCheck() string {
	quoted := make([]string, len(Categories))
	for i, c := range Categories {
		quoted[i] = "'" + string(c) + "'"
	}
	return "category IN (" + strings.Join(quoted, ", ") + ")"
}
