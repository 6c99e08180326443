// Package embedding wraps the external embedding collaborator: text in, a
// fixed-length float vector out. Calls are not retried here.
package embedding

import (
	"context"
	"fmt"

	"github.com/timmy/mygoreply/internal/config"
)

// Embedder turns text into vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Model() string
}

// New creates an embedder for the configured provider.
// Parameters:
//   - cfg: provider, model, credentials and vector size.
//
// Returns:
//   - Embedder: a Jina or OpenAI-compatible client.
//   - error: non-nil if the configuration is invalid.
func New(cfg *config.EmbeddingConfig) (Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "jina":
		return NewJinaEmbedder(&JinaConfig{
			Model:      cfg.Model,
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		}), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.Model, cfg.APIKey, cfg.BaseURL, cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
