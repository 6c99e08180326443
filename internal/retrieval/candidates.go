// Package retrieval picks one corpus line as the reply to an utterance:
// tone filter, candidate cap, closed-choice selection and locator lookup.
package retrieval

import (
	"context"
	"strings"

	"github.com/timmy/mygoreply/internal/domain"
	"github.com/timmy/mygoreply/internal/embedding"
	"github.com/timmy/mygoreply/internal/index"
	"github.com/timmy/mygoreply/internal/logger"
	"github.com/timmy/mygoreply/internal/tags"
)

// Candidate is one corpus line eligible for selection.
type Candidate struct {
	Position int      `json:"position"`
	Text     string   `json:"text"`
	Tones    []string `json:"tones"`
}

// AllCandidates returns every corpus line once, in corpus order. Repeated
// texts keep their first position and blank texts are skipped, since ""
// is the empty-selection marker.
func AllCandidates(entries []domain.Entry) []Candidate {
	return collect(entries, func(domain.Entry) bool { return true })
}

// FilterByTone returns the lines whose tags contain tone. The result may be
// empty; see FallbackCandidates.
func FilterByTone(entries []domain.Entry, tone string) []Candidate {
	return collect(entries, func(e domain.Entry) bool { return tags.HasTag(e.Tones, tone) })
}

// FallbackCandidates returns filtered unless it is empty, in which case the
// whole corpus is used instead.
func FallbackCandidates(filtered, all []Candidate) []Candidate {
	if len(filtered) == 0 {
		return all
	}
	return filtered
}

// BuildCandidates applies the tone filter with both fallback tiers: an empty
// or unknown tone means no filtering, and a filter that matches nothing
// falls back to the whole corpus. It returns the candidates and whether a
// fallback was taken.
func BuildCandidates(entries []domain.Entry, tone string) ([]Candidate, bool) {
	all := AllCandidates(entries)
	if tone == "" || !tags.Contains(tone) {
		return all, true
	}
	filtered := FilterByTone(entries, tags.Normalize(tone))
	return FallbackCandidates(filtered, all), len(filtered) == 0
}

func collect(entries []domain.Entry, keep func(domain.Entry) bool) []Candidate {
	out := make([]Candidate, 0)
	seen := make(map[string]struct{})
	for i, e := range entries {
		if strings.TrimSpace(e.Text) == "" || !keep(e) {
			continue
		}
		if _, dup := seen[e.Text]; dup {
			continue
		}
		seen[e.Text] = struct{}{}
		tones := e.Tones
		if tones == nil {
			tones = []string{}
		}
		out = append(out, Candidate{Position: i, Text: e.Text, Tones: tones})
	}
	return out
}

// CapCandidates keeps at most k candidates, preferring the ones whose corpus
// vectors are nearest to the query. Without an embedder or searcher, or when
// embedding fails, the first k in corpus order are kept.
// Parameters:
//   - ctx: request context.
//   - candidates: the tone-filtered set, never modified.
//   - query: the utterance.
//   - e, s: embedding collaborator and index over the corpus; either may be nil.
//   - corpusSize: number of vectors in the index, used as the search depth.
//   - k: cap; k <= 0 keeps everything.
func CapCandidates(ctx context.Context, candidates []Candidate, query string, e embedding.Embedder, s index.Searcher, corpusSize, k int) []Candidate {
	if k <= 0 || len(candidates) <= k {
		return append([]Candidate(nil), candidates...)
	}
	firstK := func() []Candidate { return append([]Candidate(nil), candidates[:k]...) }
	if e == nil || s == nil {
		return firstK()
	}

	vec, err := e.Embed(ctx, query)
	if err != nil {
		logger.With(logger.Fields{logger.FieldComponent: "retrieval"}).
			WithError(err).Warn(ctx, "Query embedding failed, keeping first %d candidates", k)
		return firstK()
	}
	if corpusSize < k {
		corpusSize = k
	}
	hits, err := s.Search(ctx, vec, corpusSize)
	if err != nil {
		logger.With(logger.Fields{logger.FieldComponent: "retrieval"}).
			WithError(err).Warn(ctx, "Vector search failed, keeping first %d candidates", k)
		return firstK()
	}

	byPos := make(map[int]int, len(candidates))
	for i, c := range candidates {
		byPos[c.Position] = i
	}
	used := make([]bool, len(candidates))
	out := make([]Candidate, 0, k)
	for _, h := range hits {
		i, ok := byPos[h.Position]
		if !ok || used[i] {
			continue
		}
		used[i] = true
		out = append(out, candidates[i])
		if len(out) == k {
			return out
		}
	}
	// The index may not cover every candidate; top up in corpus order.
	for i, c := range candidates {
		if len(out) == k {
			break
		}
		if !used[i] {
			out = append(out, c)
		}
	}
	return out
}

// ValidateSelection accepts selected only if it is byte-identical to one of
// the candidate texts. Anything else counts as an empty selection.
func ValidateSelection(selected string, candidates []Candidate) (string, bool) {
	if selected == "" {
		return "", false
	}
	for _, c := range candidates {
		if c.Text == selected {
			return selected, true
		}
	}
	return "", false
}
