// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/insight-engine/pkg/types"
)

func TestClaudeGenerate(t *testing.T) {
	var got claudeRequest
	var key string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("x-api-key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"content":[{"type":"text","text":"{\"insights\":[]}"}]}`)
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	c := &ClaudeBackend{APIKey: "sk-test", Model: "claude-test", Client: ts.Client()}
	out, err := c.Generate(context.Background(), Request{
		System: "be brief",
		User:   "hello",
		Schema: map[string]any{"type": "object"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"insights":[]}`, out)
	assert.Equal(t, "sk-test", key)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, DefaultMaxOutputTokens, got.MaxTokens)
	assert.True(t, strings.HasPrefix(got.System, "be brief"))
	assert.Contains(t, got.System, `{"type":"object"}`)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
}

func TestClaudeErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusBadRequest, `{"error":"bad"}`, "returned 400"},
		{"no text", http.StatusOK, `{"content":[{"type":"tool_use"}]}`, "no text content"},
		{"bad json", http.StatusOK, `{`, "decoding"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			old := claudeAPIURL
			claudeAPIURL = ts.URL
			defer func() { claudeAPIURL = old }()

			c := &ClaudeBackend{APIKey: "k", Model: "m", Client: ts.Client()}
			_, err := c.Generate(context.Background(), Request{User: "x"})
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var body map[string]any
	var path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id":"resp_1","object":"response","created_at":1,"status":"completed","model":"gpt-test",
			"output":[{"type":"message","id":"msg_1","role":"assistant","status":"completed",
				"content":[{"type":"output_text","text":"{\"insights\":[]}","annotations":[]}]}]
		}`)
	}))
	defer ts.Close()

	o := NewOpenAI(types.AIConfig{APIKey: "k", Model: "gpt-test", BaseURL: ts.URL + "/"}, ts.Client())
	out, err := o.Generate(context.Background(), Request{
		System:     "sys",
		User:       "usr",
		SchemaName: "InsightBatch",
		Schema:     map[string]any{"type": "object"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"insights":[]}`, out)
	assert.Equal(t, "/responses", path)
	assert.Equal(t, "gpt-test", body["model"])
	assert.Equal(t, "sys", body["instructions"])

	format := body["text"].(map[string]any)["format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "InsightBatch", format["name"])
	assert.Equal(t, true, format["strict"])
}

func TestGeminiGenerate(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"insights\":[]}"}]}}]}`)
	}))
	defer ts.Close()

	g, err := NewGemini(context.Background(), types.AIConfig{APIKey: "k", Model: "gemini-test", BaseURL: ts.URL + "/"}, ts.Client())
	require.NoError(t, err)
	out, err := g.Generate(context.Background(), Request{
		System: "sys",
		User:   "usr",
		Schema: map[string]any{"type": "object"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"insights":[]}`, out)

	gc := body["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", gc["responseMimeType"])
}
