// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Rarity is a five-tier label derived from an insight's capped score.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Resonance records a reviewer's decision on an insight. The zero value means unset.
type Resonance string

const (
	ResonanceUnset    Resonance = ""
	ResonanceAccepted Resonance = "accepted"
	ResonanceRejected Resonance = "rejected"
)

// SourceSnippet is one external search result. It lives only for the
// duration of a run and is never persisted.
type SourceSnippet struct {
	// URL is empty when the search service returned none.
	URL     string `json:"url,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Insight is one scored, sourced research statement about an idea.
type Insight struct {
	// ID is stable across re-synthesis of identical content.
	ID string `json:"id" yaml:"id"`

	VisionSlot VisionSlot `json:"visionSlot" yaml:"vision_slot"`
	Category   CategoryID `json:"category" yaml:"category"`
	FocusArea  string     `json:"focusArea" yaml:"focus_area"`

	// Content is two to three sentences.
	Content string `json:"content" yaml:"content"`

	// Source is the human-readable source name.
	Source string `json:"source" yaml:"source"`

	// SourceURL is nil or a URL observed in the run's search results.
	SourceURL *string `json:"sourceUrl" yaml:"source_url"`

	// Verified is false when the source could not be traced to a search result.
	Verified bool `json:"verified" yaml:"verified"`

	Presenter string `json:"presenter" yaml:"presenter"`

	// RawScore is the service-reported score in [1, 10].
	RawScore float64 `json:"rawScore" yaml:"raw_score"`

	// Score is RawScore capped by the input quality ceiling.
	Score float64 `json:"score" yaml:"score"`

	Rarity Rarity `json:"rarity" yaml:"rarity"`

	// Resonance is set by the caller after review, never by the pipeline.
	Resonance Resonance `json:"resonance,omitempty" yaml:"resonance,omitempty"`
}

// URL returns the source URL or "".
func (i Insight) URL() string {
	if i.SourceURL == nil {
		return ""
	}
	return *i.SourceURL
}
