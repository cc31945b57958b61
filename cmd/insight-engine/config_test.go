// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/insight-engine/internal/secrets"
	"github.com/pdiddy/insight-engine/pkg/types"
)

func TestLoadConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := loadConfig(v, secrets.Set{})
	require.NoError(t, err)
	assert.Equal(t, types.SearchTavily, cfg.Search.Provider)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, 20*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Research.CategoryTimeout)
	assert.Equal(t, types.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "memory", cfg.Checkpoint.Backend)
	assert.Empty(t, cfg.AI.APIKey)
}

func TestLoadConfigResolvesSecrets(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("search.provider", "brave")
	v.Set("ai.provider", "anthropic")

	cfg, err := loadConfig(v, secrets.Set{
		secrets.BraveAPIKey:     "brave-secret",
		secrets.TavilyAPIKey:    "tavily-secret",
		secrets.AnthropicAPIKey: "claude-secret",
		secrets.GeminiAPIKey:    "gemini-secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "brave-secret", cfg.Search.APIKey)
	assert.Equal(t, "claude-secret", cfg.AI.APIKey)
	assert.Equal(t, "gemini-secret", cfg.Artifact.APIKey)
}

func TestLoadConfigExplicitKeyWins(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ai.api_key", "from-config")

	cfg, err := loadConfig(v, secrets.Set{secrets.OpenAIAPIKey: "from-secrets"})
	require.NoError(t, err)
	assert.Equal(t, "from-config", cfg.AI.APIKey)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("store.driver", "postgres")

	_, err := loadConfig(v, secrets.Set{})
	assert.ErrorContains(t, err, "store.dsn")
}
