// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/pdiddy/insight-engine/pkg/types"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiBackend calls Gemini GenerateContent with a JSON response MIME type.
type GeminiBackend struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGemini builds a Gemini backend on the Gemini API.
func NewGemini(ctx context.Context, cfg types.AIConfig, httpClient *http.Client) (*GeminiBackend, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	return &GeminiBackend{client: client, model: model, maxTokens: int32(maxTokens)}, nil
}

// Generate returns the text of the first candidate.
func (g *GeminiBackend) Generate(ctx context.Context, r Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: g.maxTokens,
	}
	if r.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(r.System, genai.RoleUser)
	}
	if r.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = r.Schema
	}

	contents := []*genai.Content{genai.NewContentFromText(r.User, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	out := resp.Text()
	if out == "" {
		return "", errors.New("GenAI returned no text")
	}
	return out, nil
}
