// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm calls generative text services that answer with a single JSON
// document. Backends exist for OpenAI (Responses API with strict JSON
// schema), Gemini and Anthropic Claude; New selects one from configuration.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/pdiddy/insight-engine/pkg/types"
)

// ErrNoCredential is returned by New when the configured provider has no API key.
var ErrNoCredential = errors.New("llm: no API key configured")

// DefaultMaxOutputTokens applies when the configuration leaves it unset.
const DefaultMaxOutputTokens = 4096

// Request is one system plus user instruction pair. Schema, when set, is a
// JSON schema the response must satisfy; SchemaName labels it for providers
// that require a name.
type Request struct {
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

// Generator returns the raw text of a model response. Callers parse it with
// DecodeJSON.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// New builds the generator selected by cfg.Provider.
func New(ctx context.Context, cfg types.AIConfig, client *http.Client) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoCredential
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}
	switch cfg.Provider {
	case types.ProviderOpenAI:
		return NewOpenAI(cfg, client), nil
	case types.ProviderGemini:
		g, err := NewGemini(ctx, cfg, client)
		if err != nil {
			return nil, err
		}
		return WithRetry(g, cfg.MaxRetries), nil
	case types.ProviderAnthropic:
		return WithRetry(&ClaudeBackend{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxOutputTokens,
			Client:    client,
		}, cfg.MaxRetries), nil
	}
	return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
}

// backoffBase controls the base duration for exponential backoff. Tests
// override it to avoid real delays.
var backoffBase = time.Second

type retrying struct {
	inner      Generator
	maxRetries int
}

// WithRetry wraps g so that failed calls are retried up to maxRetries times
// with exponential backoff. Context cancellation stops retrying at once.
func WithRetry(g Generator, maxRetries int) Generator {
	if maxRetries <= 0 {
		return g
	}
	return &retrying{inner: g, maxRetries: maxRetries}
}

func (r *retrying) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		out, err := r.inner.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", r.maxRetries, lastErr)
}
