package model

import "time"

// Config is the complete runtime configuration.
type Config struct {
	Archive   ArchiveConfig   `yaml:"archive" mapstructure:"archive"`
	Traversal TraversalConfig `yaml:"traversal" mapstructure:"traversal"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
}

// ArchiveConfig configures the community-archive API client.
type ArchiveConfig struct {
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	Token             string        `yaml:"token" mapstructure:"token"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
}

// TraversalConfig bounds the quote-chain expansion.
type TraversalConfig struct {
	// MaxQuoteDepth is the recursion ceiling for quotes-of-quotes.
	MaxQuoteDepth int `yaml:"max_quote_depth" mapstructure:"max_quote_depth"`
}

// CacheConfig configures the layered analysis cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
}

// LLMConfig configures the optional classification/summarization step.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "openai", "anthropic", "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"-"` // From environment, never persisted
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Workers   int    `yaml:"workers" mapstructure:"workers"` // concurrent classification calls
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// OutputConfig controls diagnostics.
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Archive: ArchiveConfig{
			BaseURL:           "https://fabxmporizzqflnftavs.supabase.co",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Traversal: TraversalConfig{
			MaxQuoteDepth: 2,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 10 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:  "", // Disabled by default
			Timeout:   30,
			MaxTokens: 300,
			Workers:   4,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}
