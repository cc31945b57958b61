// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/insight-engine/internal/secrets"
	"github.com/pdiddy/insight-engine/pkg/types"
)

// setDefaults registers every configuration key so that environment
// variables override keys absent from the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("search.provider", string(types.SearchTavily))
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.include_domains", []string{})
	v.SetDefault("search.country", "")
	v.SetDefault("search.timeout", 20*time.Second)
	v.SetDefault("search.user_agent", "insight-engine/"+version)

	v.SetDefault("ai.provider", string(types.ProviderOpenAI))
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.max_retries", 2)
	v.SetDefault("ai.max_output_tokens", 4096)

	v.SetDefault("research.category_timeout", 90*time.Second)
	v.SetDefault("research.snippet_chars", 600)

	v.SetDefault("store.driver", string(types.DriverSQLite))
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("store.dsn", "")

	v.SetDefault("checkpoint.backend", "memory")
	v.SetDefault("checkpoint.addr", "")
	v.SetDefault("checkpoint.password", "")
	v.SetDefault("checkpoint.db", 0)
	v.SetDefault("checkpoint.prefix", "insight-engine:")
	v.SetDefault("checkpoint.ttl", 24*time.Hour)

	v.SetDefault("artifact.enabled", false)
	v.SetDefault("artifact.api_key", "")
	v.SetDefault("artifact.model", "")
	v.SetDefault("artifact.output_dir", "data/artifacts")
	v.SetDefault("artifact.concurrency", 2)
	v.SetDefault("artifact.timeout", 2*time.Minute)

	v.SetDefault("server.addr", ":8080")
}

// loadConfig reads the merged configuration, fills credentials from the
// secrets directory and validates the result.
func loadConfig(v *viper.Viper, s secrets.Set) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}

	searchKey := secrets.TavilyAPIKey
	if cfg.Search.Provider == types.SearchBrave {
		searchKey = secrets.BraveAPIKey
	}
	cfg.Search.APIKey = s.Resolve(cfg.Search.APIKey, searchKey)
	cfg.AI.APIKey = s.Resolve(cfg.AI.APIKey, aiSecret(cfg.AI.Provider))
	cfg.Artifact.APIKey = s.Resolve(cfg.Artifact.APIKey, secrets.GeminiAPIKey)
	cfg.Store.DSN = s.Resolve(cfg.Store.DSN, secrets.PostgresDSN)
	cfg.Checkpoint.Password = s.Resolve(cfg.Checkpoint.Password, secrets.RedisPassword)

	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func aiSecret(p types.AIProvider) string {
	switch p {
	case types.ProviderGemini:
		return secrets.GeminiAPIKey
	case types.ProviderAnthropic:
		return secrets.AnthropicAPIKey
	}
	return secrets.OpenAIAPIKey
}
