package corpus

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/timmy/mygoreply/internal/logger"
)

var (
	// ErrNotFound means no entry has exactly the requested text.
	ErrNotFound = errors.New("corpus: text not found")
	// ErrIncompleteLocator means entries with the text exist but none has all
	// of season, episode and frame_prefer.
	ErrIncompleteLocator = errors.New("corpus: no entry with a complete locator")
)

// Locator identifies one published frame.
type Locator struct {
	Text        string   `json:"text"`
	Season      string   `json:"season"`
	Episode     string   `json:"episode"`
	FramePrefer string   `json:"frame_prefer"`
	Tones       []string `json:"tones"`
}

// URL substitutes the locator into {base}/{season}/{episode}/{frame_prefer}.{ext}.
// Values are used literally; the dataset only contains path-safe identifiers.
func (l Locator) URL(baseURL, ext string) string {
	return fmt.Sprintf("%s/%s/%s/%s.%s", strings.TrimSuffix(baseURL, "/"), l.Season, l.Episode, l.FramePrefer, ext)
}

// Key is the object-storage key of the asset, relative to a prefix.
func (l Locator) Key(ext string) string {
	return fmt.Sprintf("%s/%s/%s.%s", l.Season, l.Episode, l.FramePrefer, ext)
}

// Lookup returns the first entry whose text equals text exactly and whose
// locator is complete. Incomplete matches are logged and skipped; a different
// entry is never substituted.
// Parameters:
//   - ctx: carries the request logger for diagnostics.
//   - text: exact corpus text, byte for byte.
//
// Returns:
//   - Locator: the resolved locator.
//   - error: ErrNotFound or ErrIncompleteLocator.
func (c *Corpus) Lookup(ctx context.Context, text string) (Locator, error) {
	matched := 0
	for i := range c.entries {
		e := &c.entries[i]
		if e.Text != text {
			continue
		}
		matched++

		if !e.HasLocator() {
			logger.With(logger.Fields{
				logger.FieldEntryIndex: i,
				logger.FieldReason:     "欄位不完整",
			}).Warn(ctx, "Skipping corpus entry with incomplete locator: text=%q season=%q episode=%q frame_prefer=%q",
				e.Text, e.Season.String(), e.Episode.String(), e.FramePrefer.String())
			continue
		}

		return Locator{
			Text:        e.Text,
			Season:      e.Season.String(),
			Episode:     e.Episode.String(),
			FramePrefer: e.FramePrefer.String(),
			Tones:       e.Tones,
		}, nil
	}

	if matched == 0 {
		return Locator{}, fmt.Errorf("%w: %q", ErrNotFound, text)
	}
	return Locator{}, fmt.Errorf("%w: %q (%d candidates)", ErrIncompleteLocator, text, matched)
}
