package types

import (
	"errors"
	"fmt"
	"time"
)

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchProvider selects the web search backend.
type SearchProvider string

const (
	SearchTavily SearchProvider = "tavily"
	SearchBrave  SearchProvider = "brave"
)

// MaxSearchResults bounds the number of snippets requested per query.
const MaxSearchResults = 8

// SearchConfig holds settings for the search gateway.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	Provider SearchProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// APIKey is the search credential. Empty disables searching; runs
	// proceed with zero sources.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxResults is clamped to [1, MaxSearchResults].
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// IncludeDomains biases results toward higher-trust domains.
	IncludeDomains []string `json:"include_domains" yaml:"include_domains" mapstructure:"include_domains"`

	Country string `json:"country,omitempty" yaml:"country,omitempty" mapstructure:"country"`
}

// AIProvider selects the generative text backend.
type AIProvider string

const (
	ProviderOpenAI    AIProvider = "openai"
	ProviderGemini    AIProvider = "gemini"
	ProviderAnthropic AIProvider = "anthropic"
)

// AIConfig holds settings for the generative text service.
type AIConfig struct {
	Provider AIProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier (e.g. "gpt-5-mini").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxRetries is the number of retry attempts for failed API calls (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	MaxOutputTokens int `json:"max_output_tokens" yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
}

// ResearchConfig holds settings for the stream orchestrator.
type ResearchConfig struct {
	// CategoryTimeout bounds search plus synthesis for one category. A
	// category that exceeds it yields zero insights.
	CategoryTimeout time.Duration `json:"category_timeout" yaml:"category_timeout" mapstructure:"category_timeout"`

	// SnippetChars truncates each snippet before it enters the prompt.
	SnippetChars int `json:"snippet_chars" yaml:"snippet_chars" mapstructure:"snippet_chars"`
}

// StoreDriver selects the persistent store.
type StoreDriver string

const (
	DriverSQLite   StoreDriver = "sqlite"
	DriverPostgres StoreDriver = "postgres"
)

// StoreConfig holds settings for the result/card store.
type StoreConfig struct {
	Driver StoreDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DataDir contains the SQLite database file.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// DSN is the Postgres connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// CheckpointConfig holds settings for resumable-run checkpoints.
type CheckpointConfig struct {
	// Backend is "memory" or "redis".
	Backend  string        `json:"backend" yaml:"backend" mapstructure:"backend"`
	Addr     string        `json:"addr,omitempty" yaml:"addr,omitempty" mapstructure:"addr"`
	Password string        `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	DB       int           `json:"db" yaml:"db" mapstructure:"db"`
	Prefix   string        `json:"prefix" yaml:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`
}

// ArtifactConfig holds settings for illustrative artifact generation.
type ArtifactConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
	Model   string `json:"model" yaml:"model" mapstructure:"model"`

	// OutputDir receives generated images.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Concurrency bounds simultaneous generation calls per dispatch.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// Timeout bounds one generation plus write-back.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// Tokens maps bearer tokens to user IDs.
	Tokens map[string]string `json:"-" yaml:"tokens" mapstructure:"tokens"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `json:"level" yaml:"level" mapstructure:"level"`
	Development bool   `json:"development" yaml:"development" mapstructure:"development"`
}

// Config groups all component configurations.
type Config struct {
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
	Search     SearchConfig     `json:"search" yaml:"search" mapstructure:"search"`
	AI         AIConfig         `json:"ai" yaml:"ai" mapstructure:"ai"`
	Research   ResearchConfig   `json:"research" yaml:"research" mapstructure:"research"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint" mapstructure:"checkpoint"`
	Artifact   ArtifactConfig   `json:"artifact" yaml:"artifact" mapstructure:"artifact"`
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
}

// Validate checks values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	switch c.Search.Provider {
	case SearchTavily, SearchBrave, "":
	default:
		return fmt.Errorf("unknown search provider %q", c.Search.Provider)
	}
	switch c.AI.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.DataDir == "" {
			return errors.New("store.data_dir is required for sqlite")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Checkpoint.Backend {
	case "memory", "":
	case "redis":
		if c.Checkpoint.Addr == "" {
			return errors.New("checkpoint.addr is required for redis")
		}
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend)
	}
	if c.Research.CategoryTimeout < 0 {
		return errors.New("research.category_timeout must be >= 0")
	}
	if c.Artifact.Concurrency < 0 {
		return errors.New("artifact.concurrency must be >= 0")
	}
	return nil
}
