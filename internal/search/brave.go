// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/insight-engine/internal/httputil"
	"github.com/pdiddy/insight-engine/pkg/types"
)

var braveAPIBase = "https://api.search.brave.com/res/v1/web/search"

// BraveBackend queries the Brave web search API.
type BraveBackend struct {
	Client *http.Client
}

// Name returns the backend identifier.
func (b *BraveBackend) Name() string { return "brave" }

type braveResponse struct {
	Web struct {
		Results []struct {
			URL           string   `json:"url"`
			Title         string   `json:"title"`
			Description   string   `json:"description"`
			ExtraSnippets []string `json:"extra_snippets"`
		} `json:"results"`
	} `json:"web"`
}

// Search issues a GET request. Brave has no domain filter parameter, so
// IncludeDomains is folded into the query as site: operators.
func (b *BraveBackend) Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.SourceSnippet, error) {
	params := url.Values{}
	params.Set("q", braveQuery(query, cfg.IncludeDomains))
	params.Set("count", strconv.Itoa(ClampResults(cfg.MaxResults)))
	if cfg.Country != "" {
		params.Set("country", cfg.Country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, braveAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", cfg.APIKey)
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 1)
	if err != nil {
		return nil, fmt.Errorf("brave request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave returned HTTP %d", resp.StatusCode)
	}

	var br braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, fmt.Errorf("parsing brave response: %w", err)
	}

	out := make([]types.SourceSnippet, 0, len(br.Web.Results))
	for _, r := range br.Web.Results {
		content := r.Description
		if len(r.ExtraSnippets) > 0 {
			content += " " + strings.Join(r.ExtraSnippets, " ")
		}
		out = append(out, types.SourceSnippet{URL: r.URL, Title: r.Title, Content: content})
	}
	return out, nil
}

func braveQuery(query string, domains []string) string {
	if len(domains) == 0 {
		return query
	}
	sites := make([]string, len(domains))
	for i, d := range domains {
		sites[i] = "site:" + d
	}
	return query + " (" + strings.Join(sites, " OR ") + ")"
}
