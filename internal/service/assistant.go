package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/mygoreply/internal/logger"
	"github.com/timmy/mygoreply/internal/retrieval"
)

// Reply is the outcome of one uploaded conversation.
type Reply struct {
	Mode       Mode              `json:"mode"`
	Transcript *Transcript       `json:"transcript,omitempty"`
	Analysis   string            `json:"analysis,omitempty"`
	Sticker    *retrieval.Result `json:"sticker,omitempty"`
	// Message is the text shown to the user.
	Message string `json:"message"`
}

// Assistant ties the screenshot, analysis and sticker flows together.
type Assistant struct {
	screenshots *ScreenshotService
	analysis    *AnalysisService
	stickers    *StickerService
}

// NewAssistant creates an Assistant. stickers may be nil when no corpus is
// loaded; sticker requests then fail with retrieval.ErrNoMatch.
func NewAssistant(screenshots *ScreenshotService, analysis *AnalysisService, stickers *StickerService) *Assistant {
	return &Assistant{screenshots: screenshots, analysis: analysis, stickers: stickers}
}

// HandleImages transcribes images and runs mode on the transcript.
// Parameters:
//   - ctx: request context.
//   - mode: ModeAnalysis or ModeSticker.
//   - images: one or more screenshots of the same conversation.
//
// Returns:
//   - *Reply: non-nil whenever the user should see a message, including
//     the "no text" and "no sticker" outcomes.
//   - error: the underlying error, so callers can map it to a status.
func (a *Assistant) HandleImages(ctx context.Context, mode Mode, images ...[]byte) (*Reply, error) {
	if a.screenshots == nil {
		return nil, fmt.Errorf("screenshot recognition is not configured")
	}
	tr, err := a.screenshots.Transcribe(ctx, images...)
	if err != nil {
		if errors.Is(err, ErrNoText) {
			return &Reply{Mode: mode, Message: NoTextMessage}, err
		}
		return nil, err
	}

	reply, err := a.HandleText(ctx, mode, tr.Text)
	if reply != nil {
		reply.Transcript = tr
	}
	return reply, err
}

// HandleText runs mode on an already formatted transcript.
func (a *Assistant) HandleText(ctx context.Context, mode Mode, transcript string) (*Reply, error) {
	log := logger.With(logger.Fields{logger.FieldMode: string(mode)})

	switch mode {
	case ModeAnalysis:
		text, err := a.analysis.Analyze(ctx, transcript)
		if err != nil {
			if errors.Is(err, ErrNoText) {
				return &Reply{Mode: mode, Message: NoTextMessage}, err
			}
			return nil, err
		}
		return &Reply{Mode: mode, Analysis: text, Message: text}, nil

	case ModeSticker:
		if a.stickers == nil {
			return &Reply{Mode: mode, Message: NoStickerMessage}, retrieval.ErrNoMatch
		}
		res, err := a.stickers.Recommend(ctx, transcript)
		if err != nil {
			switch {
			case errors.Is(err, ErrNoText):
				return &Reply{Mode: mode, Message: NoTextMessage}, err
			case errors.Is(err, retrieval.ErrNoMatch):
				log.Info(ctx, "No sticker matched: %v", err)
				return &Reply{Mode: mode, Sticker: res, Message: NoStickerMessage}, err
			}
			return nil, err
		}
		return &Reply{Mode: mode, Sticker: res, Message: res.URL}, nil

	default:
		return &Reply{Message: MenuMessage}, ErrUnknownMode
	}
}
