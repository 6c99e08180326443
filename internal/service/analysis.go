package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/timmy/mygoreply/internal/llm"
	"github.com/timmy/mygoreply/internal/prompts"
)

// AnalysisService produces the free-text reading of a conversation.
type AnalysisService struct {
	gen llm.Generator
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(gen llm.Generator) *AnalysisService {
	return &AnalysisService{gen: gen}
}

// Analyze returns the model's reading of tone, emotion and intent.
func (s *AnalysisService) Analyze(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", ErrNoText
	}

	out, err := s.gen.Generate(ctx, prompts.AnalyzeConversation(transcript))
	if err != nil {
		return "", fmt.Errorf("conversation analysis failed: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", llm.ErrEmptyResponse
	}
	return out, nil
}
