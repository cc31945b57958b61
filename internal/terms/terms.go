// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package terms derives search-ready phrases from an IdeaProfile.
package terms

import (
	"regexp"
	"strings"

	"github.com/pdiddy/insight-engine/pkg/types"
)

// fallbackWords is how many leading description words form the domain
// when neither the analogy nor the explicit category yields one.
const fallbackWords = 4

// analogyPatterns peel a trailing domain phrase off the comparison field.
// Order matters: the first pattern that matches wins.
var analogyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bbut\s+for\s+(.+)$`),
	regexp.MustCompile(`(?i)^.+?\s+for\s+(.+)$`),
	regexp.MustCompile(`(?i)^(?:the\s+)?.+?\s+of\s+(.+)$`),
	regexp.MustCompile(`(?i)^.+?\s+meets\s+(.+)$`),
	regexp.MustCompile(`(?i)^.+?\s+like\s+(.+)$`),
}

// Terms holds the phrases query templates are rendered with.
type Terms struct {
	Name        string
	Domain      string
	Audience    string
	Pain        string
	Solution    string
	Competitors string
	WhyNow      string
}

// Extract derives Terms from idea. It never fails: absent fields yield "".
func Extract(idea types.IdeaProfile) Terms {
	return Terms{
		Name:        clean(idea.Name),
		Domain:      domain(idea),
		Audience:    clean(idea.TargetAudience),
		Pain:        clean(idea.Problem),
		Solution:    clean(idea.Solution),
		Competitors: clean(idea.Competitors),
		WhyNow:      clean(idea.WhyNow),
	}
}

// Values returns the non-empty terms keyed by template name. Templates
// executed with missingkey=error fail on any term absent from this map.
func (t Terms) Values() map[string]string {
	all := map[string]string{
		"Name":        t.Name,
		"Domain":      t.Domain,
		"Audience":    t.Audience,
		"Pain":        t.Pain,
		"Solution":    t.Solution,
		"Competitors": t.Competitors,
		"WhyNow":      t.WhyNow,
	}
	out := make(map[string]string, len(all))
	for k, v := range all {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func domain(idea types.IdeaProfile) string {
	if d := matchAnalogy(idea.Analogy); d != "" {
		return d
	}
	if c := clean(idea.Category); c != "" {
		return c
	}
	words := strings.Fields(idea.Description)
	if len(words) > fallbackWords {
		words = words[:fallbackWords]
	}
	return clean(strings.Join(words, " "))
}

// matchAnalogy returns the domain phrase of the first matching pattern.
func matchAnalogy(analogy string) string {
	a := clean(analogy)
	if a == "" {
		return ""
	}
	for _, re := range analogyPatterns {
		if m := re.FindStringSubmatch(a); m != nil {
			if d := clean(m[1]); d != "" {
				return d
			}
		}
	}
	return ""
}

// clean collapses whitespace and trims trailing punctuation.
func clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, ".,;:!?")
}
