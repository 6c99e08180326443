package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ToneAnalysis is the single-shot classification of an input utterance.
// Empty fields mean the model gave no usable label.
type ToneAnalysis struct {
	Emotion    string  `json:"emotion"`
	Tone       string  `json:"tone"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Tags returns the non-empty labels, emotion first.
func (a ToneAnalysis) Tags() []string {
	out := make([]string, 0, 3)
	for _, t := range []string{a.Emotion, a.Tone, a.Intent} {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// UnmarshalJSON accepts confidence as a number or a numeric string. Any other
// confidence value decodes as 0 instead of discarding the labels.
func (a *ToneAnalysis) UnmarshalJSON(data []byte) error {
	var raw struct {
		Emotion    string          `json:"emotion"`
		Tone       string          `json:"tone"`
		Intent     string          `json:"intent"`
		Confidence json.RawMessage `json:"confidence"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = ToneAnalysis{
		Emotion:    raw.Emotion,
		Tone:       raw.Tone,
		Intent:     raw.Intent,
		Confidence: parseConfidence(raw.Confidence),
	}
	return nil
}

func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
