// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the insight-engine pipeline:
// idea profiles, research categories, insights, persisted results, and
// configuration sections.
package types

import "strings"

// VisionSlot names the IdeaProfile field an insight is scored against.
type VisionSlot string

const (
	SlotName        VisionSlot = "name"
	SlotDescription VisionSlot = "description"
	SlotAudience    VisionSlot = "target_audience"
	SlotProblem     VisionSlot = "problem"
	SlotSolution    VisionSlot = "solution"
	SlotCompetitors VisionSlot = "competitors"
	SlotWhyNow      VisionSlot = "why_now"
)

// DefaultInputQuality is used when the idea carries no quality score for a slot.
const DefaultInputQuality = 5.0

// IdeaProfile is the user's structured vision. It is owned by the
// surrounding product and is read-only to the pipeline. Any field may be empty.
type IdeaProfile struct {
	// ID identifies the owning idea record.
	ID string `json:"id" yaml:"id"`

	// OwnerID is the user who owns the idea.
	OwnerID string `json:"ownerId" yaml:"owner_id"`

	Name           string `json:"name" yaml:"name"`
	Description    string `json:"description" yaml:"description"`
	TargetAudience string `json:"targetAudience" yaml:"target_audience"`
	Problem        string `json:"problem" yaml:"problem"`
	Solution       string `json:"solution" yaml:"solution"`
	Competitors    string `json:"competitors,omitempty" yaml:"competitors,omitempty"`
	WhyNow         string `json:"whyNow" yaml:"why_now"`

	// Analogy is the free-text comparison field ("Uber for dog walking").
	Analogy string `json:"analogy,omitempty" yaml:"analogy,omitempty"`

	// Category is an explicit domain phrase chosen by the user.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	// Scores holds the product's own 0-10 quality evaluation per field.
	Scores map[VisionSlot]float64 `json:"scores,omitempty" yaml:"scores,omitempty"`
}

// Field returns the trimmed text of the named slot.
func (p IdeaProfile) Field(slot VisionSlot) string {
	var v string
	switch slot {
	case SlotName:
		v = p.Name
	case SlotDescription:
		v = p.Description
	case SlotAudience:
		v = p.TargetAudience
	case SlotProblem:
		v = p.Problem
	case SlotSolution:
		v = p.Solution
	case SlotCompetitors:
		v = p.Competitors
	case SlotWhyNow:
		v = p.WhyNow
	}
	return strings.TrimSpace(v)
}

// InputQuality returns the quality score recorded for slot, clamped to
// [0, 10]. Slots without a score use DefaultInputQuality.
func (p IdeaProfile) InputQuality(slot VisionSlot) float64 {
	s, ok := p.Scores[slot]
	if !ok {
		return DefaultInputQuality
	}
	switch {
	case s < 0:
		return 0
	case s > 10:
		return 10
	}
	return s
}
