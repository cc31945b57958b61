// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog loads the fixed research category definitions.
package catalog

import (
	_ "embed"
	"fmt"
	"text/template"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/insight-engine/pkg/types"
)

//go:embed categories.yaml
var defaultCategories []byte

// maxQueries bounds the search templates per category.
const maxQueries = 3

// Catalog holds the category definitions in processing order.
type Catalog struct {
	categories []types.Category
	byID       map[types.CategoryID]int
}

// Default returns the built-in catalog. It panics if the embedded
// definitions are invalid, which tests guard against.
func Default() *Catalog {
	c, err := Parse(defaultCategories)
	if err != nil {
		panic(fmt.Sprintf("embedded categories: %v", err))
	}
	return c
}

// Parse decodes and validates a YAML category list. The list must contain
// exactly the fixed categories in processing order.
func Parse(data []byte) (*Catalog, error) {
	var cats []types.Category
	if err := yaml.Unmarshal(data, &cats); err != nil {
		return nil, fmt.Errorf("parsing categories: %w", err)
	}
	if len(cats) != len(types.CategoryOrder) {
		return nil, fmt.Errorf("got %d categories, want %d", len(cats), len(types.CategoryOrder))
	}

	c := &Catalog{categories: cats, byID: make(map[types.CategoryID]int, len(cats))}
	for i, cat := range cats {
		if cat.ID != types.CategoryOrder[i] {
			return nil, fmt.Errorf("category %d is %q, want %q", i, cat.ID, types.CategoryOrder[i])
		}
		if err := validate(cat); err != nil {
			return nil, fmt.Errorf("category %s: %w", cat.ID, err)
		}
		c.byID[cat.ID] = i
	}
	return c, nil
}

func validate(cat types.Category) error {
	if len(cat.Queries) == 0 || len(cat.Queries) > maxQueries {
		return fmt.Errorf("needs 1-%d queries, has %d", maxQueries, len(cat.Queries))
	}
	for i, q := range cat.Queries {
		if _, err := template.New("q").Parse(q); err != nil {
			return fmt.Errorf("query %d: %w", i, err)
		}
	}
	if len(cat.Presenters) == 0 || len(cat.Presenters) > 3 {
		return fmt.Errorf("needs 1-3 presenters, has %d", len(cat.Presenters))
	}
	if cat.InsightCount <= 0 {
		return fmt.Errorf("insight_count must be positive")
	}
	if len(cat.FocusAreas) != cat.InsightCount {
		return fmt.Errorf("has %d focus areas for %d insights", len(cat.FocusAreas), cat.InsightCount)
	}
	return nil
}

// All returns the categories in processing order.
func (c *Catalog) All() []types.Category {
	out := make([]types.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Get returns the category with the given ID.
func (c *Catalog) Get(id types.CategoryID) (types.Category, bool) {
	i, ok := c.byID[id]
	if !ok {
		return types.Category{}, false
	}
	return c.categories[i], true
}

// Select returns every category when id is empty, otherwise only that category.
func (c *Catalog) Select(id types.CategoryID) ([]types.Category, error) {
	if id == "" {
		return c.All(), nil
	}
	cat, ok := c.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown category %q", id)
	}
	return []types.Category{cat}, nil
}

// TotalInsights returns the insight target for a selection.
func TotalInsights(cats []types.Category) int {
	n := 0
	for _, c := range cats {
		n += c.InsightCount
	}
	return n
}
