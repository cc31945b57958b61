// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/insight-engine/internal/terms"
	"github.com/pdiddy/insight-engine/pkg/types"
)

type stubBackend struct {
	snippets []types.SourceSnippet
	err      error
	calls    int
	queries  []string
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Search(_ context.Context, q string, _ types.SearchConfig) ([]types.SourceSnippet, error) {
	s.calls++
	s.queries = append(s.queries, q)
	return s.snippets, s.err
}

func TestGatewayWithoutCredential(t *testing.T) {
	g := NewGateway(types.SearchConfig{Provider: types.SearchTavily}, nil, nil)
	assert.False(t, g.Enabled())
	assert.Empty(t, g.Search(context.Background(), "anything"))
}

func TestGatewaySoftFailure(t *testing.T) {
	b := &stubBackend{err: errors.New("HTTP 500")}
	g := NewGatewayWithBackend(b, types.SearchConfig{}, nil)
	assert.Empty(t, g.Search(context.Background(), "dog walking market"))
	assert.Equal(t, 1, b.calls)
}

func TestGatewaySkipsEmptyQuery(t *testing.T) {
	b := &stubBackend{}
	g := NewGatewayWithBackend(b, types.SearchConfig{}, nil)
	assert.Empty(t, g.Search(context.Background(), "   "))
	assert.Zero(t, b.calls)
}

func TestGatewayCleansSnippets(t *testing.T) {
	b := &stubBackend{snippets: []types.SourceSnippet{
		{URL: " https://example.com/a ", Title: "<b>Pets</b> &amp; owners", Content: "<p>Market   grew <script>x()</script>12%</p>"},
		{URL: "javascript:alert(1)", Title: "bad link", Content: "still useful"},
		{URL: "https://example.com/empty", Title: "", Content: "<div></div>"},
	}}
	g := NewGatewayWithBackend(b, types.SearchConfig{}, nil)

	got := g.Search(context.Background(), "pets")
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/a", got[0].URL)
	assert.Equal(t, "Pets & owners", got[0].Title)
	assert.Equal(t, "Market grew 12%", got[0].Content)
	assert.Empty(t, got[1].URL)
	assert.Equal(t, "still useful", got[1].Content)
}

func TestGatewayBoundsResultCount(t *testing.T) {
	var many []types.SourceSnippet
	for i := 0; i < 20; i++ {
		many = append(many, types.SourceSnippet{Title: "t", Content: "c"})
	}
	g := NewGatewayWithBackend(&stubBackend{snippets: many}, types.SearchConfig{MaxResults: 3}, nil)
	assert.Len(t, g.Search(context.Background(), "q"), 3)

	g = NewGatewayWithBackend(&stubBackend{snippets: many}, types.SearchConfig{MaxResults: 50}, nil)
	assert.Len(t, g.Search(context.Background(), "q"), types.MaxSearchResults)
}

func TestClampResults(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 8},
		{-1, 8},
		{1, 1},
		{8, 8},
		{9, 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampResults(tt.in), "ClampResults(%d)", tt.in)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://a.com/x", "https://a.com/x"},
		{"  http://a.com ", "http://a.com"},
		{"ftp://a.com", ""},
		{"/relative/path", ""},
		{"", ""},
		{"not a url", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), "NormalizeURL(%q)", tt.in)
	}
}

func TestBuildQueries(t *testing.T) {
	cat := types.Category{
		ID: types.CategoryCompetitors,
		Queries: []string{
			"{{.Competitors}} alternatives",
			"{{.Domain}} startups   {{.Solution}}",
			"{{.Audience}} pain",
		},
	}

	t.Run("all terms present", func(t *testing.T) {
		tm := terms.Terms{Domain: "dog walking", Solution: "on-demand app", Competitors: "Rover", Audience: "pet owners"}
		assert.Equal(t, []string{
			"Rover alternatives",
			"dog walking startups on-demand app",
			"pet owners pain",
		}, BuildQueries(cat, tm))
	})

	t.Run("empty terms skip templates", func(t *testing.T) {
		tm := terms.Terms{Domain: "dog walking", Solution: "app"}
		assert.Equal(t, []string{"dog walking startups app"}, BuildQueries(cat, tm))
	})

	t.Run("no terms", func(t *testing.T) {
		assert.Empty(t, BuildQueries(cat, terms.Terms{}))
	})
}
