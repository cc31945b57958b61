// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pdiddy/insight-engine/internal/httputil"
	"github.com/pdiddy/insight-engine/pkg/types"
)

// tavilyAPIBase is the Tavily search endpoint. Declared as a var so tests
// can substitute an httptest server.
var tavilyAPIBase = "https://api.tavily.com/search"

// TavilyBackend queries the Tavily search API.
type TavilyBackend struct {
	Client *http.Client
}

// Name returns the backend identifier.
func (b *TavilyBackend) Name() string { return "tavily" }

type tavilyRequest struct {
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	SearchDepth    string   `json:"search_depth"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		URL     string  `json:"url"`
		Title   string  `json:"title"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search posts the query and returns results in service rank order.
func (b *TavilyBackend) Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.SourceSnippet, error) {
	body, err := json.Marshal(tavilyRequest{
		Query:          query,
		MaxResults:     ClampResults(cfg.MaxResults),
		SearchDepth:    "basic",
		IncludeDomains: cfg.IncludeDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyAPIBase, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 1)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned HTTP %d", resp.StatusCode)
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("parsing tavily response: %w", err)
	}

	out := make([]types.SourceSnippet, 0, len(tr.Results))
	for _, r := range tr.Results {
		out = append(out, types.SourceSnippet{URL: r.URL, Title: r.Title, Content: r.Content})
	}
	return out, nil
}
