package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/mygoreply/internal/dialogue"
	"github.com/timmy/mygoreply/internal/domain"
	"github.com/timmy/mygoreply/internal/imageutil"
	"github.com/timmy/mygoreply/internal/layout"
	"github.com/timmy/mygoreply/internal/logger"
	"github.com/timmy/mygoreply/internal/ocr"
)

// ErrNoText means none of the screenshots contained readable chat text.
var ErrNoText = errors.New("no text recognized")

// Transcript is the speaker-labeled text of one or more screenshots.
type Transcript struct {
	Turns []domain.Turn `json:"turns"`
	Text  string        `json:"transcript"`
}

// ScreenshotService turns chat screenshots into a transcript.
type ScreenshotService struct {
	recognizer ocr.Recognizer
	opts       layout.Options
}

// NewScreenshotService creates a ScreenshotService.
func NewScreenshotService(recognizer ocr.Recognizer, opts layout.Options) *ScreenshotService {
	return &ScreenshotService{recognizer: recognizer, opts: opts}
}

// Transcribe validates, recognizes and segments each image, then joins the
// per-image transcripts in upload order.
// Parameters:
//   - ctx: request context.
//   - images: raw image bytes, one element per screenshot.
//
// Returns:
//   - *Transcript: all turns and the combined transcript.
//   - error: imageutil.ErrInvalidImage or ocr.ErrOCR (wrapped with the image
//     position), a layout error, or ErrNoText when nothing was recognized.
func (s *ScreenshotService) Transcribe(ctx context.Context, images ...[]byte) (*Transcript, error) {
	if len(images) == 0 {
		return nil, ErrNoText
	}

	start := time.Now()
	out := &Transcript{Turns: []domain.Turn{}}
	texts := make([]string, 0, len(images))

	for i, img := range images {
		if _, err := imageutil.Inspect(img); err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}

		pages, err := s.recognizer.Recognize(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}

		turns, err := layout.SegmentPages(pages, s.opts)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i+1, err)
		}

		out.Turns = append(out.Turns, turns...)
		texts = append(texts, dialogue.Format(turns))
	}

	if len(out.Turns) == 0 {
		return nil, ErrNoText
	}
	out.Text = dialogue.Combine(texts...)

	logger.With(logger.Fields{logger.FieldComponent: "screenshot"}).
		WithCount(len(out.Turns)).
		WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "Transcribed %d screenshot(s)", len(images))
	return out, nil
}
