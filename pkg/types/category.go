// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// CategoryID identifies one of the five fixed research categories.
type CategoryID string

const (
	CategoryMarket      CategoryID = "market"
	CategoryCompetitors CategoryID = "competitors"
	CategoryUserInsight CategoryID = "user_insight"
	CategoryRisk        CategoryID = "risk"
	CategoryOpportunity CategoryID = "opportunity"
)

// CategoryOrder is the fixed processing order of a full run.
var CategoryOrder = []CategoryID{
	CategoryMarket,
	CategoryCompetitors,
	CategoryUserInsight,
	CategoryRisk,
	CategoryOpportunity,
}

// FinalCategory is the category whose resonance rate yields the overall verdict.
const FinalCategory = CategoryOpportunity

// Valid reports whether c is one of the fixed categories.
func (c CategoryID) Valid() bool {
	for _, id := range CategoryOrder {
		if id == c {
			return true
		}
	}
	return false
}

// Position returns the index of c in CategoryOrder, or -1.
func (c CategoryID) Position() int {
	for i, id := range CategoryOrder {
		if id == c {
			return i
		}
	}
	return -1
}

// Category describes how one research angle is searched and synthesized.
type Category struct {
	ID    CategoryID `json:"id" yaml:"id"`
	Title string     `json:"title" yaml:"title"`

	// VisionSlot is the idea field whose quality score caps this category.
	VisionSlot VisionSlot `json:"vision_slot" yaml:"vision_slot"`

	// Queries are up to three text/template search templates over extracted terms.
	Queries []string `json:"queries" yaml:"queries"`

	// Presenters are cosmetic labels attached to emitted insights.
	Presenters []string `json:"presenters" yaml:"presenters"`

	// FocusAreas steer the synthesizer; one insight is produced per area.
	FocusAreas []string `json:"focus_areas" yaml:"focus_areas"`

	// Guidance is category-specific instruction text for the synthesizer.
	Guidance string `json:"guidance" yaml:"guidance"`

	// InsightCount is the number of insights requested per run.
	InsightCount int `json:"insight_count" yaml:"insight_count"`
}
