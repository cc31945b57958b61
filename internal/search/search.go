// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search wraps external web search services and returns source
// snippets for insight synthesis. Every failure is soft: the gateway logs
// and returns no snippets so that a run can continue with zero sources.
package search

import (
	"bytes"
	"context"
	"html"
	"net/http"
	"net/url"
	"strings"
	"text/template"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/pdiddy/insight-engine/internal/terms"
	"github.com/pdiddy/insight-engine/pkg/types"
)

// Backend searches a single web search API. Tavily and Brave implement it.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, cfg types.SearchConfig) ([]types.SourceSnippet, error)
}

// Gateway issues one backend call per query and never returns an error.
type Gateway struct {
	backend Backend
	cfg     types.SearchConfig
	logger  *zap.Logger
	policy  *bluemonday.Policy
}

// NewGateway selects a backend from cfg. Without an API key the gateway has
// no backend and every search returns an empty list.
func NewGateway(cfg types.SearchConfig, client *http.Client, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	var b Backend
	if cfg.APIKey != "" {
		switch cfg.Provider {
		case types.SearchBrave:
			b = &BraveBackend{Client: client}
		default:
			b = &TavilyBackend{Client: client}
		}
	} else {
		logger.Info("search disabled: no credential configured")
	}
	return NewGatewayWithBackend(b, cfg, logger)
}

// NewGatewayWithBackend builds a gateway around an explicit backend. A nil
// backend disables searching.
func NewGatewayWithBackend(b Backend, cfg types.SearchConfig, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.MaxResults = ClampResults(cfg.MaxResults)
	return &Gateway{backend: b, cfg: cfg, logger: logger, policy: bluemonday.StrictPolicy()}
}

// Enabled reports whether searches reach a backend.
func (g *Gateway) Enabled() bool { return g.backend != nil }

// Search runs query against the backend and returns cleaned snippets.
// Missing configuration, transport errors and non-success responses all
// yield an empty list.
func (g *Gateway) Search(ctx context.Context, query string) []types.SourceSnippet {
	query = strings.TrimSpace(query)
	if g.backend == nil || query == "" {
		return nil
	}
	raw, err := g.backend.Search(ctx, query, g.cfg)
	if err != nil {
		if ctx.Err() == nil {
			g.logger.Warn("search failed",
				zap.String("backend", g.backend.Name()),
				zap.String("query", query),
				zap.Error(err))
		}
		return nil
	}

	out := make([]types.SourceSnippet, 0, len(raw))
	for _, s := range raw {
		s = g.clean(s)
		if s.Content == "" && s.Title == "" {
			continue
		}
		out = append(out, s)
		if len(out) == g.cfg.MaxResults {
			break
		}
	}
	g.logger.Debug("search complete",
		zap.String("backend", g.backend.Name()),
		zap.String("query", query),
		zap.Int("snippets", len(out)))
	return out
}

// clean strips markup from text fields and drops URLs that are not absolute http(s).
func (g *Gateway) clean(s types.SourceSnippet) types.SourceSnippet {
	s.Title = g.plain(s.Title)
	s.Content = g.plain(s.Content)
	s.URL = NormalizeURL(s.URL)
	return s
}

func (g *Gateway) plain(s string) string {
	s = html.UnescapeString(g.policy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeURL returns u trimmed if it is an absolute http or https URL, otherwise "".
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return u
}

// ClampResults bounds a requested result count to [1, types.MaxSearchResults].
// Zero selects the maximum.
func ClampResults(n int) int {
	switch {
	case n <= 0, n > types.MaxSearchResults:
		return types.MaxSearchResults
	}
	return n
}

// BuildQueries renders the category's query templates with the extracted
// terms. A template that names an empty term is skipped, as is one that
// renders to nothing.
func BuildQueries(cat types.Category, t terms.Terms) []string {
	values := t.Values()
	var out []string
	for _, text := range cat.Queries {
		tmpl, err := template.New(string(cat.ID)).Option("missingkey=error").Parse(text)
		if err != nil {
			continue
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, values); err != nil {
			continue
		}
		if q := strings.Join(strings.Fields(buf.String()), " "); q != "" {
			out = append(out, q)
		}
	}
	return out
}
