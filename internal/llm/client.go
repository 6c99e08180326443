// Package llm wraps the external text-generation collaborator: one prompt in,
// raw text out.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/mygoreply/internal/config"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("llm: empty response")

// Generator is the text-generation capability used by classification,
// selection and analysis.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChatClient calls an OpenAI-compatible /chat/completions endpoint over resty.
// Gemini, OpenAI and most gateways speak this protocol.
type ChatClient struct {
	client    *resty.Client
	model     string
	endpoint  string
	maxTokens int
}

// ChatConfig holds configuration for ChatClient.
type ChatConfig struct {
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

// NewChatClient creates a new chat-completions client.
// Parameters:
//   - cfg: model, credentials and endpoint; an empty BaseURL targets OpenAI.
//
// Returns:
//   - *ChatClient: initialized client.
func NewChatClient(cfg *ChatConfig) *ChatClient {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &ChatClient{
		client:    client,
		model:     cfg.Model,
		endpoint:  baseURL + "/chat/completions",
		maxTokens: cfg.MaxTokens,
	}
}

// GetModel returns the model name being used.
func (c *ChatClient) GetModel() string {
	return c.model
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate sends prompt as a single user message and returns the reply text.
func (c *ChatClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: c.maxTokens,
	}

	var resp chatResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to call LLM API: %w", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		errorMsg := fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), string(httpResp.Body()))
		if resp.Error != nil {
			errorMsg = fmt.Sprintf("HTTP %d: %s", httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("LLM API returned error: %s", errorMsg)
	}

	if resp.Error != nil {
		return "", fmt.Errorf("LLM API error: %s", resp.Error.Message)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w (status: %d)", ErrEmptyResponse, httpResp.StatusCode())
	}

	return resp.Choices[0].Message.Content, nil
}

// New builds the Generator selected by cfg.Provider.
func New(cfg *config.LLMConfig) (Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(&ChatConfig{
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			MaxTokens: cfg.MaxTokens,
		}), nil
	default:
		return NewChatClient(&ChatConfig{
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
			MaxTokens: cfg.MaxTokens,
		}), nil
	}
}
