// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth turns search snippets and an idea profile into scored
// insights for one research category. Service and parse failures yield an
// empty batch; they are never returned as errors.
package synth

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/insight-engine/internal/llm"
	"github.com/pdiddy/insight-engine/internal/scoring"
	"github.com/pdiddy/insight-engine/internal/search"
	"github.com/pdiddy/insight-engine/pkg/types"
)

// DefaultSnippetChars bounds each snippet's content in the prompt.
const DefaultSnippetChars = 600

// UnsourcedName is the source label for insights not traced to a snippet.
const UnsourcedName = "AI Analysis"

// Input is everything one synthesis call needs.
type Input struct {
	Category     types.Category
	Idea         types.IdeaProfile
	Snippets     []types.SourceSnippet
	InputQuality float64

	// Language is the response language tag; empty leaves it to the model.
	Language string
}

// candidate is the model-facing shape of one insight.
type candidate struct {
	FocusArea string   `json:"focus_area" jsonschema:"description=Focus area this insight addresses"`
	Content   string   `json:"content" jsonschema:"description=Two to three sentences"`
	Source    string   `json:"source"`
	SourceURL string   `json:"source_url" jsonschema:"description=URL copied from the listed sources or empty"`
	Score     *float64 `json:"score" jsonschema:"minimum=1,maximum=10"`
}

type batch struct {
	Insights []candidate `json:"insights"`
}

var batchSchema = llm.GenerateSchema[batch]()

// Synthesizer calls a Generator and validates its answer into insights.
type Synthesizer struct {
	gen          llm.Generator
	snippetChars int
	logger       *zap.Logger
}

// New returns a Synthesizer. A nil generator makes every call return no insights.
func New(gen llm.Generator, snippetChars int, logger *zap.Logger) *Synthesizer {
	if snippetChars <= 0 {
		snippetChars = DefaultSnippetChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{gen: gen, snippetChars: snippetChars, logger: logger}
}

// Synthesize returns at most in.Category.InsightCount insights ordered by
// focus area. Each insight's SourceURL is nil or a URL present in
// in.Snippets, and its Score never exceeds the input quality ceiling.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) []types.Insight {
	log := s.logger.With(zap.String("category", string(in.Category.ID)))
	if s.gen == nil {
		log.Debug("synthesis skipped: no generator")
		return nil
	}

	system, user, err := renderPrompts(in, s.snippetChars)
	if err != nil {
		log.Warn("rendering prompt", zap.Error(err))
		return nil
	}

	out, err := s.gen.Generate(ctx, llm.Request{
		System:     system,
		User:       user,
		SchemaName: "InsightBatch",
		Schema:     batchSchema,
	})
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("synthesis call failed", zap.Error(err))
		}
		return nil
	}

	var b batch
	if err := llm.DecodeJSON(out, &b); err != nil {
		log.Warn("synthesis response did not parse", zap.Error(err))
		return nil
	}

	insights := convert(b.Insights, in)
	log.Debug("synthesized",
		zap.Int("candidates", len(b.Insights)),
		zap.Int("insights", len(insights)),
		zap.Int("snippets", len(in.Snippets)))
	return insights
}

// convert validates candidates against the category and the observed
// snippets. Candidates with empty or repeated content are dropped. Each remaining one
// claims its named focus area, or the first unclaimed one, and the result is
// ordered by focus area and truncated to the category's insight count.
func convert(cands []candidate, in Input) []types.Insight {
	cat := in.Category
	limit := cat.InsightCount
	if n := len(cat.FocusAreas); n > 0 && (limit <= 0 || limit > n) {
		limit = n
	}

	observed := observedURLs(in.Snippets)
	slots := make([]*types.Insight, max(len(cat.FocusAreas), limit))
	var overflow []*types.Insight
	seen := make(map[string]bool)

	for _, c := range cands {
		content := strings.Join(strings.Fields(c.Content), " ")
		if content == "" || seen[content] {
			continue
		}
		seen[content] = true
		ins := &types.Insight{
			VisionSlot: cat.VisionSlot,
			Category:   cat.ID,
			Content:    content,
		}
		applySource(ins, c, observed)

		raw := scoring.NormalizeRaw(c.Score)
		ins.RawScore = raw
		ins.Score = scoring.Cap(raw, in.InputQuality)
		ins.Rarity = scoring.Classify(ins.Score)

		idx := focusIndex(cat.FocusAreas, c.FocusArea)
		if idx < 0 || slots[idx] != nil {
			overflow = append(overflow, ins)
			continue
		}
		slots[idx] = ins
	}

	for _, ins := range overflow {
		for i := range slots {
			if slots[i] == nil {
				slots[i] = ins
				break
			}
		}
	}

	var out []types.Insight
	for i, ins := range slots {
		if ins == nil {
			continue
		}
		if i < len(cat.FocusAreas) {
			ins.FocusArea = cat.FocusAreas[i]
		}
		ins.ID = stableID(in.Idea.ID, string(cat.ID), ins.FocusArea, ins.Content)
		if len(cat.Presenters) > 0 {
			ins.Presenter = cat.Presenters[len(out)%len(cat.Presenters)]
		}
		out = append(out, *ins)
		if len(out) == limit {
			break
		}
	}
	return out
}

func applySource(ins *types.Insight, c candidate, observed map[string]types.SourceSnippet) {
	if snip, ok := observed[urlKey(c.SourceURL)]; ok && c.SourceURL != "" {
		u := snip.URL
		ins.SourceURL = &u
		ins.Verified = true
		ins.Source = strings.TrimSpace(c.Source)
		if ins.Source == "" || ins.Source == UnsourcedName {
			ins.Source = sourceName(snip)
		}
		return
	}
	ins.Source = strings.TrimSpace(c.Source)
	if ins.Source == "" {
		ins.Source = UnsourcedName
	}
}

func sourceName(s types.SourceSnippet) string {
	if s.Title != "" {
		return s.Title
	}
	if u, err := url.Parse(s.URL); err == nil && u.Host != "" {
		return strings.TrimPrefix(u.Host, "www.")
	}
	return UnsourcedName
}

// observedURLs indexes snippets by normalized URL. The first snippet for a
// URL wins.
func observedURLs(snippets []types.SourceSnippet) map[string]types.SourceSnippet {
	m := make(map[string]types.SourceSnippet, len(snippets))
	for _, s := range snippets {
		if s.URL == "" {
			continue
		}
		k := urlKey(s.URL)
		if k == "" {
			continue
		}
		if _, ok := m[k]; !ok {
			m[k] = s
		}
	}
	return m
}

// urlKey normalizes a URL for comparison: scheme and host lowercased, fragment
// and trailing slash dropped. Non-http URLs map to "".
func urlKey(raw string) string {
	raw = search.NormalizeURL(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

func focusIndex(areas []string, name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	for i, a := range areas {
		if strings.EqualFold(a, name) {
			return i
		}
	}
	return -1
}

// stableID returns a deterministic identifier for an insight so that
// re-synthesizing identical content in the same focus area yields the same ID.
func stableID(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}
