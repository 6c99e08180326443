package config

import (
	"fmt"
	"time"
)

// LLMConfig configures the text-generation collaborator used for
// classification, tone analysis, reply selection and free-text analysis.
type LLMConfig struct {
	Provider  string        `mapstructure:"provider"` // resty (OpenAI-compatible HTTP), openai (go-openai SDK)
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens"`
}

// Validate checks the LLM provider settings.
func (c *LLMConfig) Validate() error {
	switch c.Provider {
	case "resty", "openai":
	default:
		return fmt.Errorf("llm: unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("llm: model is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("llm: api_key is required (LLM_API_KEY or GEMINI_API_KEY)")
	}
	return nil
}

// EmbeddingConfig configures the embedding collaborator.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // jina, openai (any OpenAI-compatible endpoint)
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// Validate checks that the embedding configuration has all required fields.
// Returns an error describing the first validation failure, or nil if valid.
func (c *EmbeddingConfig) Validate() error {
	switch c.Provider {
	case "jina", "openai":
	default:
		return fmt.Errorf("embedding: unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("embedding: model is required")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedding: dimensions must be positive")
	}
	if c.APIKey == "" {
		return fmt.Errorf("embedding: api_key is required")
	}
	return nil
}
