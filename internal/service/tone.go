package service

import (
	"context"
	"fmt"

	"github.com/timmy/mygoreply/internal/domain"
	"github.com/timmy/mygoreply/internal/llm"
	"github.com/timmy/mygoreply/internal/logger"
	"github.com/timmy/mygoreply/internal/prompts"
	"github.com/timmy/mygoreply/internal/tags"
)

// TagClassifier assigns vocabulary tags to corpus text. It backs the batch
// tagging pipeline, which owns retries and caching.
type TagClassifier struct {
	gen llm.Generator
}

// NewTagClassifier creates a classifier on top of a text generator.
func NewTagClassifier(gen llm.Generator) *TagClassifier {
	return &TagClassifier{gen: gen}
}

// Classify makes one generation call and keeps only vocabulary tags.
// Parse failures are returned so the caller can retry them.
func (c *TagClassifier) Classify(ctx context.Context, text string) ([]string, error) {
	out, err := c.gen.Generate(ctx, prompts.ClassifyTags(text))
	if err != nil {
		return nil, fmt.Errorf("tag classification failed: %w", err)
	}

	var raw []string
	if err := llm.DecodeJSON(out, &raw); err != nil {
		return nil, err
	}
	return tags.Filter(raw), nil
}

// ToneAnalyzer classifies a live utterance. Results are not cached and the
// blocklist is not applied.
type ToneAnalyzer struct {
	gen llm.Generator
}

// NewToneAnalyzer creates an analyzer on top of a text generator.
func NewToneAnalyzer(gen llm.Generator) *ToneAnalyzer {
	return &ToneAnalyzer{gen: gen}
}

// Analyze returns emotion, tone and intent labels for text.
// Parameters:
//   - ctx: request context.
//   - text: the utterance to classify.
//
// Returns:
//   - domain.ToneAnalysis: labels outside the vocabulary are cleared. A reply
//     that cannot be parsed yields an empty analysis.
//   - error: non-nil only when the generation call itself failed.
func (a *ToneAnalyzer) Analyze(ctx context.Context, text string) (domain.ToneAnalysis, error) {
	out, err := a.gen.Generate(ctx, prompts.ToneAnalysis(text))
	if err != nil {
		return domain.ToneAnalysis{}, fmt.Errorf("tone analysis failed: %w", err)
	}

	var result domain.ToneAnalysis
	if err := llm.DecodeJSON(out, &result); err != nil {
		logger.With(logger.Fields{
			logger.FieldComponent: "tone_analyzer",
		}).WithError(err).Warn(ctx, "Unparseable tone analysis, treating as no tone")
		return domain.ToneAnalysis{}, nil
	}

	result.Emotion = vocabularyOnly(result.Emotion)
	result.Tone = vocabularyOnly(result.Tone)
	result.Intent = vocabularyOnly(result.Intent)
	return result, nil
}

func vocabularyOnly(label string) string {
	label = tags.Normalize(label)
	if !tags.Contains(label) {
		return ""
	}
	return label
}

// ReplySelector asks the model to pick one candidate verbatim.
type ReplySelector struct {
	gen llm.Generator
}

// NewReplySelector creates a selector on top of a text generator.
func NewReplySelector(gen llm.Generator) *ReplySelector {
	return &ReplySelector{gen: gen}
}

// Select returns the model's selected_text, or "" when the reply is empty or
// cannot be parsed. The caller validates the text against the candidates.
func (s *ReplySelector) Select(ctx context.Context, utterance string, options []prompts.ReplyOption) (string, error) {
	if len(options) == 0 {
		return "", nil
	}
	out, err := s.gen.Generate(ctx, prompts.SelectReply(utterance, options))
	if err != nil {
		return "", fmt.Errorf("reply selection failed: %w", err)
	}

	var reply struct {
		SelectedText string `json:"selected_text"`
	}
	if err := llm.DecodeJSON(out, &reply); err != nil {
		logger.With(logger.Fields{
			logger.FieldComponent: "reply_selector",
			logger.FieldCount:     len(options),
		}).WithError(err).Warn(ctx, "Unparseable selection, treating as empty")
		return "", nil
	}
	return reply.SelectedText, nil
}
