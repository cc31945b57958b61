// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scoring caps raw insight scores against the quality of the
// originating idea input and maps capped scores to rarity tiers.
package scoring

import (
	"math"

	"github.com/pdiddy/insight-engine/pkg/types"
)

const (
	// MaxScore is the absolute score ceiling.
	MaxScore = 10.0

	// MinScore is the lowest score a service may report.
	MinScore = 1.0

	// DefaultRawScore replaces a missing or non-finite service score.
	DefaultRawScore = 5.0

	// QualityHeadroom is how far an insight may score above its input quality.
	QualityHeadroom = 2.0
)

// thresholds are evaluated top-down; the first one met wins.
var thresholds = []struct {
	min    float64
	rarity types.Rarity
}{
	{9.4, types.RarityLegendary},
	{8.0, types.RarityEpic},
	{7.0, types.RarityRare},
	{6.0, types.RarityUncommon},
}

// Ceiling returns the highest score an insight may carry for the given input quality.
func Ceiling(inputQuality float64) float64 {
	return math.Min(MaxScore, inputQuality+QualityHeadroom)
}

// Cap returns raw limited to Ceiling(inputQuality).
func Cap(raw, inputQuality float64) float64 {
	return math.Min(raw, Ceiling(inputQuality))
}

// Classify maps a capped score to its rarity tier.
func Classify(score float64) types.Rarity {
	for _, t := range thresholds {
		if score >= t.min {
			return t.rarity
		}
	}
	return types.RarityCommon
}

// NormalizeRaw coerces a service-reported score into [MinScore, MaxScore],
// defaulting to DefaultRawScore when it is missing or not finite.
func NormalizeRaw(raw *float64) float64 {
	if raw == nil || math.IsNaN(*raw) || math.IsInf(*raw, 0) {
		return DefaultRawScore
	}
	return math.Max(MinScore, math.Min(MaxScore, *raw))
}
