// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Verdict is the overall recommendation derived from the final category.
type Verdict string

const (
	VerdictGo            Verdict = "go"
	VerdictConditionalGo Verdict = "conditional_go"
	VerdictPivot         Verdict = "pivot"
	VerdictStop          Verdict = "stop"
)

// Evaluation dimensions scored for each completed category.
const (
	DimensionDepth         = "depth"
	DimensionUniqueness    = "uniqueness"
	DimensionActionability = "actionability"
	DimensionSourceQuality = "source_quality"
)

// EvaluationDimensions lists the dimensions in presentation order.
var EvaluationDimensions = []string{
	DimensionDepth,
	DimensionUniqueness,
	DimensionActionability,
	DimensionSourceQuality,
}

// DimensionScore is one qualitative evaluation axis.
type DimensionScore struct {
	Name        string  `json:"name" yaml:"name"`
	Score       float64 `json:"score" yaml:"score"`
	Explanation string  `json:"explanation" yaml:"explanation"`
}

// Evaluation is the qualitative assessment of a category's insights.
type Evaluation struct {
	Dimensions []DimensionScore `json:"dimensions" yaml:"dimensions"`
	Summary    string           `json:"summary" yaml:"summary"`

	// Fallback is true when the evaluation was computed locally because
	// the generative service was unavailable.
	Fallback bool `json:"fallback" yaml:"fallback"`
}

// ResultRecord is the persisted outcome of one category, keyed by (IdeaID, Category).
type ResultRecord struct {
	IdeaID   string     `json:"ideaId" yaml:"idea_id"`
	OwnerID  string     `json:"ownerId" yaml:"owner_id"`
	Category CategoryID `json:"category" yaml:"category"`

	Insights []Insight `json:"insights" yaml:"insights"`

	ResonanceCount int     `json:"resonanceCount" yaml:"resonance_count"`
	ResonanceRate  float64 `json:"resonanceRate" yaml:"resonance_rate"`
	AverageScore   float64 `json:"averageScore" yaml:"average_score"`
	Rarity         Rarity  `json:"rarity" yaml:"rarity"`

	// Verdict is set only for the final category.
	Verdict Verdict `json:"verdict,omitempty" yaml:"verdict,omitempty"`

	Evaluation Evaluation `json:"evaluation" yaml:"evaluation"`
	UpdatedAt  time.Time  `json:"updatedAt" yaml:"updated_at"`
}

// ArtifactStatus tracks asynchronous illustration generation for a card.
type ArtifactStatus string

const (
	ArtifactPending ArtifactStatus = "pending"
	ArtifactReady   ArtifactStatus = "ready"
	ArtifactFailed  ArtifactStatus = "failed"
)

// CardRecord is the persisted summary card of one category, keyed by (IdeaID, Category).
type CardRecord struct {
	IdeaID   string     `json:"ideaId" yaml:"idea_id"`
	OwnerID  string     `json:"ownerId" yaml:"owner_id"`
	Category CategoryID `json:"category" yaml:"category"`

	Title   string `json:"title" yaml:"title"`
	Summary string `json:"summary" yaml:"summary"`
	Rarity  Rarity `json:"rarity" yaml:"rarity"`

	// ArtifactRef locates the generated illustration once ready.
	ArtifactRef    string         `json:"artifactRef,omitempty" yaml:"artifact_ref,omitempty"`
	ArtifactStatus ArtifactStatus `json:"artifactStatus" yaml:"artifact_status"`

	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}
