// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/insight-engine/internal/artifact"
	"github.com/pdiddy/insight-engine/internal/llm"
	"github.com/pdiddy/insight-engine/internal/store"
	"github.com/pdiddy/insight-engine/pkg/types"
)

type memStore struct {
	mu        sync.Mutex
	results   map[types.CategoryID]types.ResultRecord
	cards     map[types.CategoryID]types.CardRecord
	failCards map[types.CategoryID]bool
}

func newMemStore() *memStore {
	return &memStore{
		results:   make(map[types.CategoryID]types.ResultRecord),
		cards:     make(map[types.CategoryID]types.CardRecord),
		failCards: make(map[types.CategoryID]bool),
	}
}

func (m *memStore) UpsertResult(_ context.Context, r types.ResultRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[r.Category] = r
	return nil
}

func (m *memStore) UpsertCard(_ context.Context, c types.CardRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCards[c.Category] {
		return errors.New("write timeout")
	}
	m.cards[c.Category] = c
	return nil
}

type recordingDispatcher struct {
	reqs []artifact.Request
}

func (r *recordingDispatcher) Dispatch(_ context.Context, reqs []artifact.Request) {
	r.reqs = append(r.reqs, reqs...)
}

type cannedEvaluator struct {
	out string
	err error
	req llm.Request
}

func (c *cannedEvaluator) Generate(_ context.Context, r llm.Request) (string, error) {
	c.req = r
	return c.out, c.err
}

func decision(cat types.CategoryID, content string, score float64, resonated bool) Decision {
	return Decision{
		Insight: types.Insight{
			ID: content, Category: cat, Content: content, Source: "AI Analysis",
			RawScore: score, Score: score, Rarity: types.RarityCommon,
		},
		Resonated: resonated,
	}
}

// strongIdea scores every slot 10 so submitted scores pass uncapped.
func strongIdea() types.IdeaProfile {
	return types.IdeaProfile{ID: "idea-1", OwnerID: "user-1", Scores: map[types.VisionSlot]float64{
		types.SlotDescription: 10,
		types.SlotCompetitors: 10,
		types.SlotProblem:     10,
		types.SlotSolution:    10,
		types.SlotWhyNow:      10,
	}}
}

func newTestService(st Store, ev llm.Generator, d Dispatcher) *Service {
	s := New(Options{Store: st, Evaluator: ev, Artifacts: d})
	s.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestVerdictFor(t *testing.T) {
	tests := []struct {
		rate float64
		want types.Verdict
	}{
		{1, types.VerdictGo},
		{0.8, types.VerdictGo},
		{0.79, types.VerdictConditionalGo},
		{0.6, types.VerdictConditionalGo},
		{0.5, types.VerdictPivot},
		{0.4, types.VerdictPivot},
		{0.39, types.VerdictStop},
		{0, types.VerdictStop},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VerdictFor(tt.rate), "VerdictFor(%v)", tt.rate)
	}
}

func TestAggregate(t *testing.T) {
	st := aggregate([]Decision{
		decision(types.CategoryMarket, "a", 8, true),
		decision(types.CategoryMarket, "b", 6, true),
		decision(types.CategoryMarket, "c", 10, false),
	}, 10)
	assert.Equal(t, 2, st.count)
	assert.InDelta(t, 2.0/3.0, st.rate, 1e-9)
	assert.InDelta(t, 7.0, st.average, 1e-9)
	assert.Equal(t, types.ResonanceAccepted, st.insights[0].Resonance)
	assert.Equal(t, types.ResonanceRejected, st.insights[2].Resonance)

	none := aggregate([]Decision{decision(types.CategoryRisk, "x", 9, false)}, 10)
	assert.Zero(t, none.count)
	assert.Zero(t, none.average)
	assert.Zero(t, none.rate)
}

func TestCompleteGroupsAndPersists(t *testing.T) {
	st := newMemStore()
	d := &recordingDispatcher{}
	s := newTestService(st, nil, d)

	sum, err := s.Complete(context.Background(), Request{
		IdeaID:  "idea-1",
		OwnerID: "user-1",
		Idea:    strongIdea(),
		Decisions: []Decision{
			decision(types.CategoryOpportunity, "o1", 9.5, true),
			decision(types.CategoryMarket, "m1", 7, true),
			decision(types.CategoryOpportunity, "o2", 8, true),
			decision(types.CategoryMarket, "m2", 5, false),
			decision(types.CategoryOpportunity, "o3", 4, false),
			decision("astrology", "z", 10, true),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Categories)
	assert.Equal(t, 2, sum.Persisted)
	assert.Zero(t, sum.Failed)
	assert.Equal(t, types.VerdictConditionalGo, sum.Verdict)

	require.Len(t, sum.Results, 2)
	assert.Equal(t, types.CategoryMarket, sum.Results[0].Category)
	assert.Equal(t, types.CategoryOpportunity, sum.Results[1].Category)

	market := st.results[types.CategoryMarket]
	assert.Equal(t, 1, market.ResonanceCount)
	assert.InDelta(t, 0.5, market.ResonanceRate, 1e-9)
	assert.InDelta(t, 7.0, market.AverageScore, 1e-9)
	assert.Equal(t, types.RarityRare, market.Rarity)
	assert.Empty(t, market.Verdict)
	assert.True(t, market.Evaluation.Fallback)
	assert.Len(t, market.Evaluation.Dimensions, 4)

	opp := st.results[types.CategoryOpportunity]
	assert.InDelta(t, 8.75, opp.AverageScore, 1e-9)
	assert.Equal(t, types.RarityEpic, opp.Rarity)
	assert.Equal(t, types.VerdictConditionalGo, opp.Verdict)

	card := st.cards[types.CategoryOpportunity]
	assert.Equal(t, types.ArtifactPending, card.ArtifactStatus)
	assert.Equal(t, "o1", card.Summary)
	assert.Equal(t, types.RarityEpic, card.Rarity)
	assert.NotEmpty(t, card.Title)

	require.Len(t, d.reqs, 2)
	assert.Equal(t, artifact.Key{IdeaID: "idea-1", OwnerID: "user-1", Category: types.CategoryMarket}, d.reqs[0].Key)
}

func TestCompleteRecapsSubmittedScores(t *testing.T) {
	st := newMemStore()
	idea := types.IdeaProfile{ID: "idea-1", Scores: map[types.VisionSlot]float64{types.SlotWhyNow: 6}}
	inflated := Decision{Insight: types.Insight{
		ID: "o1", Category: types.CategoryOpportunity, Content: "o1",
		Score: 15, Rarity: types.RarityLegendary,
	}, Resonated: true}
	mislabeled := Decision{Insight: types.Insight{
		ID: "m1", Category: types.CategoryMarket, Content: "m1",
		RawScore: 4, Score: 4, Rarity: types.RarityLegendary,
	}, Resonated: true}

	_, err := newTestService(st, nil, nil).Complete(context.Background(), Request{
		IdeaID:    "idea-1",
		Idea:      idea,
		Decisions: []Decision{inflated, mislabeled},
	})
	require.NoError(t, err)

	opp := st.results[types.CategoryOpportunity]
	require.Len(t, opp.Insights, 1)
	assert.Equal(t, 10.0, opp.Insights[0].RawScore)
	assert.Equal(t, 8.0, opp.Insights[0].Score)
	assert.Equal(t, types.RarityEpic, opp.Insights[0].Rarity)
	assert.InDelta(t, 8.0, opp.AverageScore, 1e-9)
	assert.Equal(t, types.RarityEpic, opp.Rarity)

	market := st.results[types.CategoryMarket]
	require.Len(t, market.Insights, 1)
	assert.Equal(t, 4.0, market.Insights[0].Score)
	assert.Equal(t, types.RarityCommon, market.Insights[0].Rarity)
	assert.Equal(t, types.RarityCommon, market.Rarity)
}

func TestCompleteCollapsesRepeatedInsights(t *testing.T) {
	st := newMemStore()
	o1 := decision(types.CategoryOpportunity, "o1", 8, true)
	sum, err := newTestService(st, nil, nil).Complete(context.Background(), Request{
		IdeaID: "idea-1",
		Idea:   strongIdea(),
		Decisions: []Decision{
			o1, o1, o1, o1,
			decision(types.CategoryOpportunity, "o2", 6, false),
			decision(types.CategoryMarket, "m1", 7, true),
			decision(types.CategoryMarket, "m2", 7, true),
			decision(types.CategoryMarket, "m1", 7, false),
		},
	})
	require.NoError(t, err)

	opp := st.results[types.CategoryOpportunity]
	require.Len(t, opp.Insights, 2)
	assert.Equal(t, 1, opp.ResonanceCount)
	assert.InDelta(t, 0.5, opp.ResonanceRate, 1e-9)
	assert.Equal(t, types.VerdictPivot, sum.Verdict)

	market := st.results[types.CategoryMarket]
	require.Len(t, market.Insights, 2)
	assert.Equal(t, "m1", market.Insights[0].ID)
	assert.Equal(t, types.ResonanceRejected, market.Insights[0].Resonance)
	assert.Equal(t, 1, market.ResonanceCount)
}

func TestCompleteUsesEvaluator(t *testing.T) {
	ev := &cannedEvaluator{out: "```json\n" + `{
		"depth": {"score": 8, "explanation": "goes deep"},
		"uniqueness": {"score": 14, "explanation": "very specific"},
		"actionability": {"score": 6, "explanation": "some next steps"},
		"source_quality": {"score": 5, "explanation": "mixed"},
		"summary": "Strong demand among urban pet owners."
	}` + "\n```"}
	st := newMemStore()
	s := newTestService(st, ev, nil)

	_, err := s.Complete(context.Background(), Request{
		IdeaID:    "idea-1",
		Language:  "de",
		Decisions: []Decision{decision(types.CategoryUserInsight, "u1", 7, true)},
	})
	require.NoError(t, err)

	got := st.results[types.CategoryUserInsight].Evaluation
	assert.False(t, got.Fallback)
	require.Len(t, got.Dimensions, 4)
	assert.Equal(t, types.DimensionDepth, got.Dimensions[0].Name)
	assert.Equal(t, 10.0, got.Dimensions[1].Score)
	assert.Equal(t, "Strong demand among urban pet owners.", st.cards[types.CategoryUserInsight].Summary)
	assert.Contains(t, ev.req.User, `"de"`)
	assert.Contains(t, ev.req.User, "u1")
	assert.Equal(t, "CategoryEvaluation", ev.req.SchemaName)
}

func TestCompleteEvaluatorFailureFallsBack(t *testing.T) {
	for name, ev := range map[string]*cannedEvaluator{
		"error":     {err: errors.New("rate limited")},
		"malformed": {out: "not json at all"},
	} {
		t.Run(name, func(t *testing.T) {
			st := newMemStore()
			sum, err := newTestService(st, ev, nil).Complete(context.Background(), Request{
				IdeaID:    "idea-1",
				Decisions: []Decision{decision(types.CategoryRisk, "r1", 6, true)},
			})
			require.NoError(t, err)
			assert.Equal(t, 1, sum.Persisted)
			got := st.results[types.CategoryRisk].Evaluation
			assert.True(t, got.Fallback)
			for _, d := range got.Dimensions {
				assert.Equal(t, 6.0, d.Score)
			}
		})
	}
}

func TestCompletePersistenceFailureIsPartial(t *testing.T) {
	st := newMemStore()
	st.failCards[types.CategoryMarket] = true
	d := &recordingDispatcher{}

	sum, err := newTestService(st, nil, d).Complete(context.Background(), Request{
		IdeaID: "idea-1",
		Decisions: []Decision{
			decision(types.CategoryMarket, "m1", 7, true),
			decision(types.CategoryRisk, "r1", 7, true),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Persisted)
	require.Len(t, d.reqs, 1)
	assert.Equal(t, types.CategoryRisk, d.reqs[0].Category)
}

func TestCompleteRequiresIdea(t *testing.T) {
	_, err := newTestService(newMemStore(), nil, nil).Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrMissingIdea)
}

func TestCompleteNoDecisions(t *testing.T) {
	d := &recordingDispatcher{}
	sum, err := newTestService(newMemStore(), nil, d).Complete(context.Background(), Request{IdeaID: "i"})
	require.NoError(t, err)
	assert.Zero(t, sum.Categories)
	assert.Empty(t, d.reqs)
}

func TestCompleteIsIdempotent(t *testing.T) {
	db, err := store.NewSQLite(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	s := newTestService(db, nil, nil)
	req := Request{
		IdeaID:  "idea-1",
		OwnerID: "user-1",
		Decisions: []Decision{
			decision(types.CategoryMarket, "m1", 7, true),
			decision(types.CategoryOpportunity, "o1", 9, true),
		},
	}
	_, err = s.Complete(context.Background(), req)
	require.NoError(t, err)
	_, err = s.Complete(context.Background(), req)
	require.NoError(t, err)

	results, err := db.Results(context.Background(), "idea-1")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	cards, err := db.Cards(context.Background(), "idea-1")
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Equal(t, types.VerdictGo, results[1].Verdict)
}
