// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/insight-engine/internal/checkpoint"
	"github.com/pdiddy/insight-engine/internal/research"
	"github.com/pdiddy/insight-engine/internal/store"
	"github.com/pdiddy/insight-engine/internal/stream"
	"github.com/pdiddy/insight-engine/internal/synth"
	"github.com/pdiddy/insight-engine/internal/validation"
	"github.com/pdiddy/insight-engine/pkg/types"
)

type fakeStore struct {
	ideas   map[string]types.IdeaProfile
	results []types.ResultRecord
	cards   []types.CardRecord
	err     error
}

func (f *fakeStore) Idea(_ context.Context, id string) (types.IdeaProfile, error) {
	if f.err != nil {
		return types.IdeaProfile{}, f.err
	}
	idea, ok := f.ideas[id]
	if !ok {
		return types.IdeaProfile{}, store.ErrNotFound
	}
	return idea, nil
}

func (f *fakeStore) Results(context.Context, string) ([]types.ResultRecord, error) {
	return f.results, nil
}

func (f *fakeStore) Cards(context.Context, string) ([]types.CardRecord, error) {
	return f.cards, nil
}

type oneInsightSynth struct{}

func (oneInsightSynth) Synthesize(_ context.Context, in synth.Input) []types.Insight {
	return []types.Insight{{ID: string(in.Category.ID), Category: in.Category.ID, Content: "c", Score: 6}}
}

type fakeCompleter struct {
	got validation.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req validation.Request) (validation.Summary, error) {
	f.got = req
	if req.IdeaID == "" {
		return validation.Summary{}, validation.ErrMissingIdea
	}
	return validation.Summary{IdeaID: req.IdeaID, Categories: 1, Persisted: 1, Verdict: types.VerdictGo}, nil
}

type fixture struct {
	ts          *httptest.Server
	store       *fakeStore
	completer   *fakeCompleter
	checkpoints checkpoint.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: &fakeStore{ideas: map[string]types.IdeaProfile{
			"idea-1": {ID: "idea-1", OwnerID: "alice", Name: "Walkies", Analogy: "Uber for dog walking"},
			"idea-2": {ID: "idea-2", OwnerID: "alice", Name: "Purrfect"},
			"idea-9": {ID: "idea-9", OwnerID: "bob"},
		}},
		completer:   &fakeCompleter{},
		checkpoints: checkpoint.NewMemory(time.Hour),
	}
	srv, err := New(Options{
		Store:       f.store,
		Research:    research.New(research.Options{Synth: oneInsightSynth{}, Checkpoints: f.checkpoints}),
		Validation:  f.completer,
		Checkpoints: f.checkpoints,
		Tokens:      map[string]string{"tok-alice": "alice"},
	})
	require.NoError(t, err)
	f.ts = httptest.NewServer(srv.Routes())
	t.Cleanup(f.ts.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readEvents(t *testing.T, r io.Reader) []stream.Event {
	t.Helper()
	dec := stream.NewDecoder(r)
	var out []stream.Event
	for {
		ev, err := dec.Next()
		if errors.Is(err, stream.ErrDone) || errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, ev)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestUnauthorized(t *testing.T) {
	f := newFixture(t)
	for _, tc := range []struct{ method, path, token string }{
		{http.MethodPost, "/api/research", ""},
		{http.MethodPost, "/api/research", "wrong"},
		{http.MethodPost, "/api/ideas/idea-1/complete", ""},
		{http.MethodGet, "/api/ideas/idea-1/results", "nope"},
	} {
		resp := f.do(t, tc.method, tc.path, tc.token, `{"ideaId":"idea-1"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestResearchStreams(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/research", "tok-alice", `{"ideaId":"idea-1","language":"en"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp.Body)
	// 5 categories, each one insight and one progress, then done.
	require.Len(t, events, 11)
	assert.Equal(t, stream.TypeInsight, events[0].Type)
	assert.Equal(t, types.CategoryMarket, events[0].Insight.Category)
	assert.Equal(t, stream.TypeProgress, events[1].Type)
	last := events[len(events)-1]
	assert.Equal(t, stream.TypeDone, last.Type)
	assert.Equal(t, 5, last.TotalInsights)
	assert.NotEmpty(t, last.RunID)
}

func TestResearchSingleCategory(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/research", "tok-alice", `{"ideaId":"idea-1","category":"risk"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	events := readEvents(t, resp.Body)
	require.Len(t, events, 3)
	assert.Equal(t, types.CategoryRisk, events[0].Insight.Category)
}

func TestResearchRejections(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed body", `{`, http.StatusBadRequest},
		{"missing idea", `{"language":"en"}`, http.StatusBadRequest},
		{"unknown category", `{"ideaId":"idea-1","category":"astrology"}`, http.StatusBadRequest},
		{"unknown idea", `{"ideaId":"idea-404"}`, http.StatusNotFound},
		{"foreign idea", `{"ideaId":"idea-9"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/api/research", "tok-alice", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}
}

func TestResearchResumeMismatch(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodPost, "/api/research", "tok-alice", `{"ideaId":"idea-1","category":"risk"}`)
	events := readEvents(t, resp.Body)
	require.NotEmpty(t, events)
	runID := events[len(events)-1].RunID

	resp = f.do(t, http.MethodPost, "/api/research", "tok-alice", `{"ideaId":"idea-2","category":"risk","resumeToken":"`+runID+`"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/research", "tok-alice", `{"ideaId":"idea-1","category":"risk","resumeToken":"`+runID+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	replayed := readEvents(t, resp.Body)
	assert.Equal(t, runID, replayed[len(replayed)-1].RunID)
}

func TestStoreErrorIs500(t *testing.T) {
	f := newFixture(t)
	f.store.err = errors.New("db down")
	resp := f.do(t, http.MethodPost, "/api/research", "tok-alice", `{"ideaId":"idea-1"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	body := `{"language":"fr","decisions":[{"insight":{"id":"a","category":"opportunity","content":"c","score":8},"resonated":true}]}`
	resp := f.do(t, http.MethodPost, "/api/ideas/idea-1/complete", "tok-alice", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sum validation.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.Equal(t, "idea-1", sum.IdeaID)
	assert.Equal(t, types.VerdictGo, sum.Verdict)

	assert.Equal(t, "alice", f.completer.got.OwnerID)
	assert.Equal(t, "idea-1", f.completer.got.Idea.ID)
	assert.Equal(t, "fr", f.completer.got.Language)
	require.Len(t, f.completer.got.Decisions, 1)
	assert.True(t, f.completer.got.Decisions[0].Resonated)

	resp = f.do(t, http.MethodPost, "/api/ideas/idea-9/complete", "tok-alice", body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResults(t *testing.T) {
	f := newFixture(t)
	f.store.results = []types.ResultRecord{{IdeaID: "idea-1", Category: types.CategoryMarket, Rarity: types.RarityRare}}
	f.store.cards = []types.CardRecord{{IdeaID: "idea-1", Category: types.CategoryMarket, ArtifactStatus: types.ArtifactPending}}
	require.NoError(t, f.checkpoints.Save(context.Background(), &checkpoint.Checkpoint{RunID: "run-x", IdeaID: "idea-1", OwnerID: "alice"}))

	resp := f.do(t, http.MethodGet, "/api/ideas/idea-1/results", "tok-alice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got resultsBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "idea-1", got.IdeaID)
	require.Len(t, got.Results, 1)
	require.Len(t, got.Cards, 1)
	assert.Equal(t, types.ArtifactPending, got.Cards[0].ArtifactStatus)
	assert.Equal(t, []string{"run-x"}, got.ResumableRuns)

	resp = f.do(t, http.MethodGet, "/api/ideas/idea-9/results", "tok-alice", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
