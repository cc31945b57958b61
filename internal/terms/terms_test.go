// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package terms

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/insight-engine/pkg/types"
)

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		name string
		idea types.IdeaProfile
		want string
	}{
		{"x for y", types.IdeaProfile{Analogy: "Uber for dog walking"}, "dog walking"},
		{"but for wins over for", types.IdeaProfile{Analogy: "Like Airbnb but for boat rentals."}, "boat rentals"},
		{"the x of y", types.IdeaProfile{Analogy: "The Netflix of cooking classes"}, "cooking classes"},
		{"x meets y", types.IdeaProfile{Analogy: "Notion meets CRM"}, "CRM"},
		{"x like y", types.IdeaProfile{Analogy: "a marketplace like Etsy"}, "Etsy"},
		{"no pattern falls back to category", types.IdeaProfile{Analogy: "unique", Category: "  pet care "}, "pet care"},
		{"description fallback", types.IdeaProfile{Description: "An app that matches dog owners with walkers"}, "An app that matches"},
		{"short description", types.IdeaProfile{Description: "Dog walking"}, "Dog walking"},
		{"nothing", types.IdeaProfile{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.idea).Domain)
		})
	}
}

func TestExtractCopiesFields(t *testing.T) {
	idea := types.IdeaProfile{
		Name:           "Walkies",
		TargetAudience: " busy  urban professionals ",
		Problem:        "No time to walk dogs.",
		Solution:       "On-demand vetted walkers",
		WhyNow:         "Remote work shifts schedules",
	}
	got := Extract(idea)
	assert.Equal(t, "Walkies", got.Name)
	assert.Equal(t, "busy urban professionals", got.Audience)
	assert.Equal(t, "No time to walk dogs", got.Pain)
	assert.Equal(t, "On-demand vetted walkers", got.Solution)
	assert.Equal(t, "", got.Competitors)
	assert.Equal(t, "Remote work shifts schedules", got.WhyNow)
}

func TestValuesOmitsEmpty(t *testing.T) {
	v := Terms{Name: "Walkies", Domain: "dog walking"}.Values()
	assert.Equal(t, map[string]string{"Name": "Walkies", "Domain": "dog walking"}, v)
}
