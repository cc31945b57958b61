// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validation completes a reviewed research run: it aggregates the
// reviewer's resonance decisions per category, evaluates each category,
// persists result and card records, and dispatches artifact generation
// without waiting for it.
package validation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/insight-engine/internal/artifact"
	"github.com/pdiddy/insight-engine/internal/catalog"
	"github.com/pdiddy/insight-engine/internal/llm"
	"github.com/pdiddy/insight-engine/internal/scoring"
	"github.com/pdiddy/insight-engine/pkg/types"
)

// ErrMissingIdea is returned when the request names no idea.
var ErrMissingIdea = errors.New("idea id is required")

// DefaultEvaluationTimeout bounds the qualitative evaluation of one category.
const DefaultEvaluationTimeout = 30 * time.Second

// Decision is the reviewer's verdict on one streamed insight.
type Decision struct {
	Insight   types.Insight `json:"insight" yaml:"insight"`
	Resonated bool          `json:"resonated" yaml:"resonated"`
}

// Request completes one idea. Idea supplies the input quality scores that
// cap submitted insight scores; a zero profile caps every slot at the default.
type Request struct {
	IdeaID    string
	OwnerID   string
	Idea      types.IdeaProfile
	Language  string
	Decisions []Decision
}

// Summary reports what was persisted. Failed counts categories whose result
// or card could not be written.
type Summary struct {
	IdeaID     string               `json:"ideaId"`
	Verdict    types.Verdict        `json:"verdict,omitempty"`
	Categories int                  `json:"categories"`
	Persisted  int                  `json:"persisted"`
	Failed     int                  `json:"failed"`
	Results    []types.ResultRecord `json:"results"`
}

// Store is the part of the store completion writes to.
type Store interface {
	UpsertResult(ctx context.Context, r types.ResultRecord) error
	UpsertCard(ctx context.Context, c types.CardRecord) error
}

// Dispatcher starts artifact generation without blocking.
// *artifact.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, reqs []artifact.Request)
}

// Options configures a Service. Evaluator and Artifacts may be nil.
type Options struct {
	Catalog           *catalog.Catalog
	Store             Store
	Evaluator         llm.Generator
	Artifacts         Dispatcher
	EvaluationTimeout time.Duration
	Logger            *zap.Logger
}

// Service completes validation requests. It is safe for concurrent use.
type Service struct {
	catalog   *catalog.Catalog
	store     Store
	evaluator llm.Generator
	artifacts Dispatcher
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// New returns a Service.
func New(opts Options) *Service {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.EvaluationTimeout <= 0 {
		opts.EvaluationTimeout = DefaultEvaluationTimeout
	}
	return &Service{
		catalog:   opts.Catalog,
		store:     opts.Store,
		evaluator: opts.Evaluator,
		artifacts: opts.Artifacts,
		timeout:   opts.EvaluationTimeout,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// Complete aggregates, evaluates and persists req. Evaluation and
// persistence failures are logged and counted; only a request without an
// idea ID is rejected.
func (s *Service) Complete(ctx context.Context, req Request) (Summary, error) {
	if req.IdeaID == "" {
		return Summary{}, ErrMissingIdea
	}
	log := s.logger.With(zap.String("idea", req.IdeaID))
	sum := Summary{IdeaID: req.IdeaID}

	groups := s.group(req.Decisions, log)
	var dispatch []artifact.Request
	for _, g := range groups {
		sum.Categories++
		clog := log.With(zap.String("category", string(g.category.ID)))

		stats := aggregate(g.decisions, req.Idea.InputQuality(g.category.VisionSlot))
		rec := types.ResultRecord{
			IdeaID:         req.IdeaID,
			OwnerID:        req.OwnerID,
			Category:       g.category.ID,
			Insights:       stats.insights,
			ResonanceCount: stats.count,
			ResonanceRate:  stats.rate,
			AverageScore:   stats.average,
			Rarity:         scoring.Classify(stats.average),
			UpdatedAt:      s.now().UTC(),
		}
		if g.category.ID == types.FinalCategory {
			rec.Verdict = VerdictFor(stats.rate)
			sum.Verdict = rec.Verdict
		}
		rec.Evaluation = s.evaluate(ctx, g.category, stats, req.Language, clog)
		sum.Results = append(sum.Results, rec)

		if err := s.store.UpsertResult(ctx, rec); err != nil {
			clog.Error("persisting result", zap.Error(err))
			sum.Failed++
			continue
		}
		card := cardFor(g.category, rec, stats)
		if err := s.store.UpsertCard(ctx, card); err != nil {
			clog.Error("persisting card", zap.Error(err))
			sum.Failed++
			continue
		}
		sum.Persisted++
		dispatch = append(dispatch, artifact.Request{
			Key:     artifact.Key{IdeaID: req.IdeaID, OwnerID: req.OwnerID, Category: g.category.ID},
			Title:   card.Title,
			Summary: card.Summary,
			Rarity:  card.Rarity,
		})
	}

	if s.artifacts != nil && len(dispatch) > 0 {
		s.artifacts.Dispatch(ctx, dispatch)
	}
	log.Info("validation complete",
		zap.Int("categories", sum.Categories),
		zap.Int("persisted", sum.Persisted),
		zap.Int("failed", sum.Failed),
		zap.String("verdict", string(sum.Verdict)))
	return sum, nil
}

type group struct {
	category  types.Category
	decisions []Decision
}

// group buckets decisions by category in processing order. Decisions for
// unknown categories are dropped. A repeated insight ID keeps its first
// position and its last decision.
func (s *Service) group(decisions []Decision, log *zap.Logger) []group {
	byID := make(map[types.CategoryID][]Decision)
	pos := make(map[string]int)
	for _, d := range decisions {
		id := d.Insight.Category
		if _, ok := s.catalog.Get(id); !ok {
			log.Warn("dropping decision for unknown category", zap.String("category", string(id)))
			continue
		}
		if key := d.Insight.ID; key != "" {
			key = string(id) + "/" + key
			if i, ok := pos[key]; ok {
				log.Debug("replacing repeated decision", zap.String("insight", d.Insight.ID))
				byID[id][i] = d
				continue
			}
			pos[key] = len(byID[id])
		}
		byID[id] = append(byID[id], d)
	}
	var out []group
	for _, cat := range s.catalog.All() {
		if ds, ok := byID[cat.ID]; ok {
			out = append(out, group{category: cat, decisions: ds})
		}
	}
	return out
}

type stats struct {
	insights []types.Insight
	count    int
	rate     float64
	average  float64
}

// aggregate computes resonance statistics. Each insight's score is re-capped
// against inputQuality and its rarity reclassified before averaging. The
// average covers resonated insights only and is zero when none resonated.
func aggregate(decisions []Decision, inputQuality float64) stats {
	var st stats
	var total float64
	for _, d := range decisions {
		ins := rescore(d.Insight, inputQuality)
		if d.Resonated {
			ins.Resonance = types.ResonanceAccepted
			st.count++
			total += ins.Score
		} else {
			ins.Resonance = types.ResonanceRejected
		}
		st.insights = append(st.insights, ins)
	}
	if n := len(decisions); n > 0 {
		st.rate = float64(st.count) / float64(n)
	}
	if st.count > 0 {
		st.average = total / float64(st.count)
	}
	return st
}

// rescore derives Score and Rarity from the reported raw score. Submissions
// without a raw score fall back to their score.
func rescore(ins types.Insight, inputQuality float64) types.Insight {
	raw := ins.RawScore
	if raw <= 0 {
		raw = ins.Score
	}
	ins.RawScore = scoring.NormalizeRaw(&raw)
	ins.Score = scoring.Cap(ins.RawScore, inputQuality)
	ins.Rarity = scoring.Classify(ins.Score)
	return ins
}

// VerdictFor maps the final category's resonance rate to a verdict.
func VerdictFor(rate float64) types.Verdict {
	switch {
	case rate >= 0.8:
		return types.VerdictGo
	case rate >= 0.6:
		return types.VerdictConditionalGo
	case rate >= 0.4:
		return types.VerdictPivot
	}
	return types.VerdictStop
}

func cardFor(cat types.Category, rec types.ResultRecord, st stats) types.CardRecord {
	summary := rec.Evaluation.Summary
	if rec.Evaluation.Fallback || summary == "" {
		summary = leadInsight(st.insights)
	}
	return types.CardRecord{
		IdeaID:         rec.IdeaID,
		OwnerID:        rec.OwnerID,
		Category:       cat.ID,
		Title:          cat.Title,
		Summary:        summary,
		Rarity:         rec.Rarity,
		ArtifactStatus: types.ArtifactPending,
		UpdatedAt:      rec.UpdatedAt,
	}
}

// leadInsight returns the highest-scoring resonated insight's content, or
// the first insight's when none resonated.
func leadInsight(insights []types.Insight) string {
	var best *types.Insight
	for i := range insights {
		ins := &insights[i]
		if ins.Resonance != types.ResonanceAccepted {
			continue
		}
		if best == nil || ins.Score > best.Score {
			best = ins
		}
	}
	if best != nil {
		return best.Content
	}
	if len(insights) > 0 {
		return insights[0].Content
	}
	return ""
}
