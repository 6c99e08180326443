// Package layout turns unordered OCR blocks of a chat screenshot into an
// ordered, speaker-labeled dialogue.
package layout

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/timmy/mygoreply/internal/domain"
)

// ErrInvalidPageWidth is returned when a block carries no usable page width.
var ErrInvalidPageWidth = errors.New("layout: page width must be positive")

// Options controls speaker classification. Ratios are fractions of the page width.
type Options struct {
	// ThresholdRatio splits left from right. A centroid exactly on the
	// threshold is right.
	ThresholdRatio float64
	// MiddleLow and MiddleHigh bound the open band where timestamps and system
	// messages sit. The band is tested before ThresholdRatio.
	MiddleLow  float64
	MiddleHigh float64
}

// DefaultOptions matches the screenshots the corpus was built from.
func DefaultOptions() Options {
	return Options{ThresholdRatio: 0.5, MiddleLow: 0.4, MiddleHigh: 0.6}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ThresholdRatio <= 0 {
		o.ThresholdRatio = d.ThresholdRatio
	}
	if o.MiddleLow == 0 && o.MiddleHigh == 0 {
		o.MiddleLow, o.MiddleHigh = d.MiddleLow, d.MiddleHigh
	}
	return o
}

// Classify assigns a speaker from a horizontal centroid.
func Classify(avgX float64, width int, opts Options) domain.Speaker {
	opts = opts.withDefaults()
	w := float64(width)
	switch {
	case avgX > w*opts.MiddleLow && avgX < w*opts.MiddleHigh:
		return domain.SpeakerMiddle
	case avgX < w*opts.ThresholdRatio:
		return domain.SpeakerLeft
	default:
		return domain.SpeakerRight
	}
}

// Centroid returns the mean x and y of a polygon. ok is false for polygons
// with fewer than two vertices, which cannot be classified.
func Centroid(poly []domain.Point) (avgX, avgY float64, ok bool) {
	if len(poly) == 0 {
		return 0, 0, false
	}
	var sx, sy float64
	for _, p := range poly {
		sx += float64(p.X)
		sy += float64(p.Y)
	}
	n := float64(len(poly))
	return sx / n, sy / n, len(poly) >= 2
}

type placed struct {
	turn domain.Turn
	y    float64
}

// Segment orders blocks top to bottom and labels each with its speaker.
// Blocks whose trimmed text is empty are dropped. Blocks with degenerate
// polygons are kept as SpeakerUnknown.
// Parameters:
//   - blocks: OCR blocks in any order; every block must carry a positive page width.
//   - opts: classification ratios; zero values fall back to DefaultOptions.
//
// Returns:
//   - []domain.Turn: turns sorted by ascending vertical centroid (stable for ties).
//   - error: ErrInvalidPageWidth if any block has a missing or non-positive width.
func Segment(blocks []domain.Block, opts Options) ([]domain.Turn, error) {
	opts = opts.withDefaults()

	items := make([]placed, 0, len(blocks))
	for i, b := range blocks {
		if b.PageWidth <= 0 {
			return nil, fmt.Errorf("block %d: %w (got %d)", i, ErrInvalidPageWidth, b.PageWidth)
		}

		avgX, avgY, ok := Centroid(b.Polygon)
		speaker := domain.SpeakerUnknown
		if ok {
			speaker = Classify(avgX, b.PageWidth, opts)
		}

		items = append(items, placed{
			turn: domain.Turn{Speaker: speaker, Text: strings.TrimSpace(b.Text)},
			y:    avgY,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].y < items[j].y
	})

	turns := make([]domain.Turn, 0, len(items))
	for _, it := range items {
		if it.turn.Text == "" {
			continue
		}
		turns = append(turns, it.turn)
	}
	return turns, nil
}

// SegmentPages segments each page independently and concatenates the
// results in page order, so a long screenshot split into pages keeps its
// reading order.
func SegmentPages(pages [][]domain.Block, opts Options) ([]domain.Turn, error) {
	var all []domain.Turn
	for i, page := range pages {
		turns, err := Segment(page, opts)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		all = append(all, turns...)
	}
	return all, nil
}
