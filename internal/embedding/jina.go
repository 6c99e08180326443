package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const defaultJinaBaseURL = "https://api.jina.ai/v1"

// JinaEmbedder calls the Jina embeddings API.
type JinaEmbedder struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
}

// JinaConfig holds configuration for JinaEmbedder.
type JinaConfig struct {
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}

// NewJinaEmbedder creates a Jina client.
func NewJinaEmbedder(cfg *JinaConfig) *JinaEmbedder {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultJinaBaseURL
	}

	return &JinaEmbedder{
		client:     client,
		endpoint:   strings.TrimSuffix(baseURL, "/") + "/embeddings",
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Model returns the model name being used.
func (e *JinaEmbedder) Model() string { return e.model }

// Dimensions returns the requested vector size.
func (e *JinaEmbedder) Dimensions() int { return e.dimensions }

type jinaRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

type jinaResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Detail string `json:"detail,omitempty"`
}

// Embed generates an embedding for a single text.
func (e *JinaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, returned in input order.
// The same task is used for corpus lines and live utterances so both land in
// one space.
func (e *JinaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	req := jinaRequest{
		Model:         e.model,
		Task:          "text-matching",
		Dimensions:    e.dimensions,
		Input:         texts,
		EmbeddingType: "float",
	}

	var resp jinaResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(e.endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to call Jina API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("Jina API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("Jina API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("unexpected number of embeddings: got %d, expected %d", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		embeddings[item.Index] = item.Embedding
	}
	for i, v := range embeddings {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d", i)
		}
	}

	return embeddings, nil
}
