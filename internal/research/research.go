// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research orchestrates a streamed research run: for each requested
// category in fixed order it searches, synthesizes, and emits insight and
// progress events, ending with a single done event.
package research

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/insight-engine/internal/catalog"
	"github.com/pdiddy/insight-engine/internal/checkpoint"
	"github.com/pdiddy/insight-engine/internal/search"
	"github.com/pdiddy/insight-engine/internal/stream"
	"github.com/pdiddy/insight-engine/internal/synth"
	"github.com/pdiddy/insight-engine/internal/terms"
	"github.com/pdiddy/insight-engine/pkg/types"
)

// Invalid invocations. Everything else a run encounters is absorbed.
var (
	ErrMissingIdea     = errors.New("idea id is required")
	ErrUnknownCategory = errors.New("unknown category")
	ErrResumeMismatch  = errors.New("resume token belongs to a different run")
)

// DefaultCategoryTimeout bounds search plus synthesis of one category.
const DefaultCategoryTimeout = 90 * time.Second

// Searcher returns snippets for one query and never fails.
type Searcher interface {
	Search(ctx context.Context, query string) []types.SourceSnippet
}

// Synthesizer returns insights for one category and never fails.
type Synthesizer interface {
	Synthesize(ctx context.Context, in synth.Input) []types.Insight
}

// Sink receives the run's events in order. *stream.Encoder implements it.
type Sink interface {
	Encode(ev stream.Event) error
}

// Request starts or resumes a run.
type Request struct {
	Idea     types.IdeaProfile
	Language string

	// Category restricts the run to one category when set.
	Category types.CategoryID

	// ResumeToken is the run ID of an interrupted run to continue.
	ResumeToken string
}

// Summary describes a finished run.
type Summary struct {
	RunID         string
	TotalInsights int
	TotalSources  int
	Resumed       bool
}

// Options configures an Orchestrator. Checkpoints may be nil to disable resume.
type Options struct {
	Catalog         *catalog.Catalog
	Search          Searcher
	Synth           Synthesizer
	Checkpoints     checkpoint.Store
	CategoryTimeout time.Duration
	Logger          *zap.Logger
}

// Orchestrator runs research requests. It holds no per-run state and is safe
// for concurrent use.
type Orchestrator struct {
	catalog     *catalog.Catalog
	search      Searcher
	synth       Synthesizer
	checkpoints checkpoint.Store
	timeout     time.Duration
	logger      *zap.Logger
	newRunID    func() string
}

// New returns an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.CategoryTimeout == 0 {
		opts.CategoryTimeout = DefaultCategoryTimeout
	}
	return &Orchestrator{
		catalog:     opts.Catalog,
		search:      opts.Search,
		synth:       opts.Synth,
		checkpoints: opts.Checkpoints,
		timeout:     opts.CategoryTimeout,
		logger:      opts.Logger,
		newRunID:    uuid.NewString,
	}
}

// Validate checks the invocation shape without starting any work.
func (o *Orchestrator) Validate(req Request) ([]types.Category, error) {
	if req.Idea.ID == "" {
		return nil, ErrMissingIdea
	}
	if req.Category != "" && !req.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, req.Category)
	}
	cats, err := o.catalog.Select(req.Category)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCategory, err)
	}
	return cats, nil
}

// Run processes the requested categories sequentially and writes events to
// sink. It returns ctx.Err() when the caller cancels, in which case no
// event for the interrupted category has been sent. An error from sink
// ends the run.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink Sink) (Summary, error) {
	cats, err := o.Validate(req)
	if err != nil {
		return Summary{}, err
	}

	st, err := o.start(ctx, req)
	if err != nil {
		return Summary{}, err
	}
	log := o.logger.With(zap.String("run_id", st.RunID), zap.String("idea_id", req.Idea.ID))
	log.Info("research run started",
		zap.Int("categories", len(cats)),
		zap.Bool("resumed", st.resumed),
		zap.String("language", req.Language))

	if err := st.replay(sink, len(cats)); err != nil {
		return st.summary(), err
	}

	t := terms.Extract(req.Idea)
	for st.Cursor < len(cats) {
		if err := ctx.Err(); err != nil {
			log.Info("research run cancelled", zap.Int("completed", st.Cursor))
			return st.summary(), err
		}
		cat := cats[st.Cursor]

		insights, sources := o.category(ctx, st, cat, t, req)
		if err := ctx.Err(); err != nil {
			log.Info("research run cancelled", zap.Int("completed", st.Cursor))
			return st.summary(), err
		}
		st.TotalSources += sources

		st.Phase = PhaseEmitting
		for _, ins := range insights {
			st.Seq++
			st.emitted = append(st.emitted, ins)
			if err := sink.Encode(stream.InsightEvent(ins, st.TotalSources, st.Seq)); err != nil {
				return st.summary(), fmt.Errorf("sending insight: %w", err)
			}
		}
		st.Cursor++
		if err := sink.Encode(stream.ProgressEvent(st.Cursor, len(cats), len(st.emitted), st.TotalSources, st.RunID)); err != nil {
			return st.summary(), fmt.Errorf("sending progress: %w", err)
		}
		log.Debug("category complete",
			zap.String("category", string(cat.ID)),
			zap.Int("insights", len(insights)),
			zap.Int("sources", sources))
		o.save(ctx, st, req, log)
	}

	st.Phase = PhaseDone
	if err := sink.Encode(stream.DoneEvent(len(st.emitted), st.TotalSources, st.RunID)); err != nil {
		return st.summary(), fmt.Errorf("sending done: %w", err)
	}
	log.Info("research run finished",
		zap.Int("insights", len(st.emitted)),
		zap.Int("sources", st.TotalSources))
	return st.summary(), nil
}

// category searches and synthesizes one category under the category timeout.
// A timeout is a soft failure that yields whatever the synthesizer returned,
// typically nothing.
func (o *Orchestrator) category(ctx context.Context, st *RunState, cat types.Category, t terms.Terms, req Request) ([]types.Insight, int) {
	cctx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	st.Phase = PhaseSearching
	var snippets []types.SourceSnippet
	if o.search != nil {
		for _, q := range search.BuildQueries(cat, t) {
			if cctx.Err() != nil {
				break
			}
			snippets = append(snippets, o.search.Search(cctx, q)...)
		}
	}

	st.Phase = PhaseSynthesizing
	var insights []types.Insight
	if o.synth != nil && cctx.Err() == nil {
		insights = o.synth.Synthesize(cctx, synth.Input{
			Category:     cat,
			Idea:         req.Idea,
			Snippets:     snippets,
			InputQuality: req.Idea.InputQuality(cat.VisionSlot),
			Language:     req.Language,
		})
	}
	if errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		o.logger.Warn("category timed out",
			zap.String("run_id", st.RunID),
			zap.String("category", string(cat.ID)),
			zap.Duration("timeout", o.timeout))
	}
	return admit(insights, cat), len(snippets)
}

// admit keeps only insights of cat, up to its insight count.
func admit(insights []types.Insight, cat types.Category) []types.Insight {
	out := make([]types.Insight, 0, len(insights))
	for _, ins := range insights {
		if ins.Category != cat.ID {
			continue
		}
		out = append(out, ins)
		if cat.InsightCount > 0 && len(out) == cat.InsightCount {
			break
		}
	}
	return out
}

// start creates fresh run state or restores it from a resume token. An
// unknown or expired token starts a new run.
func (o *Orchestrator) start(ctx context.Context, req Request) (*RunState, error) {
	st := &RunState{RunID: o.newRunID(), Phase: PhaseIdle}
	if req.ResumeToken == "" || o.checkpoints == nil {
		return st, nil
	}

	cp, err := o.checkpoints.Load(ctx, req.ResumeToken)
	if errors.Is(err, checkpoint.ErrNotFound) {
		o.logger.Info("resume token not found, starting new run", zap.String("token", req.ResumeToken))
		return st, nil
	}
	if err != nil {
		o.logger.Warn("loading checkpoint", zap.Error(err))
		return st, nil
	}
	if cp.IdeaID != req.Idea.ID || cp.OwnerID != req.Idea.OwnerID || cp.Selector != req.Category {
		return nil, ErrResumeMismatch
	}
	return restore(cp), nil
}

func (o *Orchestrator) save(ctx context.Context, st *RunState, req Request, log *zap.Logger) {
	if o.checkpoints == nil {
		return
	}
	cp := &checkpoint.Checkpoint{
		RunID:        st.RunID,
		IdeaID:       req.Idea.ID,
		OwnerID:      req.Idea.OwnerID,
		Selector:     req.Category,
		Cursor:       st.Cursor,
		Insights:     st.emitted,
		TotalSources: st.TotalSources,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := o.checkpoints.Save(ctx, cp); err != nil {
		log.Warn("saving checkpoint", zap.Error(err))
	}
}
