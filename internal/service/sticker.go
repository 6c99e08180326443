package service

import (
	"context"
	"strings"

	"github.com/timmy/mygoreply/internal/assets"
	"github.com/timmy/mygoreply/internal/corpus"
	"github.com/timmy/mygoreply/internal/logger"
	"github.com/timmy/mygoreply/internal/retrieval"
)

// Recommender is the retrieval step behind StickerService.
type Recommender interface {
	Recommend(ctx context.Context, utterance string) (*retrieval.Result, error)
}

// AssetFetcher resolves a locator into a stored image.
type AssetFetcher interface {
	Fetch(ctx context.Context, loc corpus.Locator) (*assets.Asset, error)
}

// StickerService picks a sticker frame that answers a conversation.
type StickerService struct {
	recommender Recommender
	fetcher     AssetFetcher
}

// NewStickerService creates a StickerService. fetcher may be nil, in which
// case the template URL is returned without downloading the image.
func NewStickerService(recommender Recommender, fetcher AssetFetcher) *StickerService {
	return &StickerService{recommender: recommender, fetcher: fetcher}
}

// Recommend runs retrieval for transcript.
// Parameters:
//   - ctx: request context.
//   - transcript: formatted conversation.
//
// Returns:
//   - *retrieval.Result: the recommendation. When an asset cache is
//     configured, URL points at the cached copy.
//   - error: ErrNoText for an empty transcript, retrieval.ErrNoMatch when
//     nothing fits, or a collaborator error.
func (s *StickerService) Recommend(ctx context.Context, transcript string) (*retrieval.Result, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, ErrNoText
	}

	res, err := s.recommender.Recommend(ctx, transcript)
	if err != nil {
		return res, err
	}

	if s.fetcher != nil && res.Locator != nil {
		asset, err := s.fetcher.Fetch(ctx, *res.Locator)
		if err != nil {
			// the template URL is still usable by the client
			logger.With(logger.Fields{logger.FieldComponent: "sticker"}).
				WithError(err).Warn(ctx, "Asset fetch failed for %s", res.URL)
		} else {
			res.URL = asset.URL
		}
	}
	return res, nil
}
