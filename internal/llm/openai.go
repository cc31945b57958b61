// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/pdiddy/insight-engine/pkg/types"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIBackend calls the OpenAI Responses API with a strict json_schema
// text format. Retries are delegated to the SDK.
type OpenAIBackend struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAI builds an OpenAI backend. BaseURL points it at an
// OpenAI-compatible gateway.
func NewOpenAI(cfg types.AIConfig, httpClient *http.Client) *OpenAIBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	client := openai.NewClient(opts...)
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	return &OpenAIBackend{client: &client, model: model, maxTokens: maxTokens}
}

// Generate issues one Responses call and returns its output text.
func (o *OpenAIBackend) Generate(ctx context.Context, r Request) (string, error) {
	if o.model == "" {
		return "", errors.New("openai: model is empty")
	}

	params := responses.ResponseNewParams{
		Model:           o.model,
		MaxOutputTokens: openai.Int(int64(o.maxTokens)),
		Instructions:    openai.String(r.System),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(r.User, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if r.Schema != nil {
		name := r.SchemaName
		if name == "" {
			name = "Response"
		}
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   name,
					Schema: r.Schema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		}
	}

	resp, err := o.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai responses: %w", err)
	}
	out := resp.OutputText()
	if out == "" {
		return "", errors.New("openai: empty output")
	}
	return out, nil
}
