// Package dialogue renders labeled turns as a transcript the language model
// can read.
package dialogue

import (
	"strings"

	"github.com/timmy/mygoreply/internal/domain"
)

// Prefixes written in front of each line, keyed by speaker.
const (
	PrefixSelf    = "(我)"
	PrefixOther   = "(對方)"
	PrefixSystem  = "(時間戳or系統訊息)"
	PrefixUnknown = "(未知)"
)

// Prefix returns the transcript label of a speaker.
func Prefix(s domain.Speaker) string {
	switch s {
	case domain.SpeakerRight:
		return PrefixSelf
	case domain.SpeakerLeft:
		return PrefixOther
	case domain.SpeakerMiddle:
		return PrefixSystem
	default:
		return PrefixUnknown
	}
}

// Format renders one line per turn, joined with newlines.
func Format(turns []domain.Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, Prefix(t.Speaker)+t.Text)
	}
	return strings.Join(lines, "\n")
}

// Combine joins the transcripts of several screenshots of one conversation,
// skipping empty ones.
func Combine(transcripts ...string) string {
	parts := make([]string, 0, len(transcripts))
	for _, t := range transcripts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, "\n\n")
}
