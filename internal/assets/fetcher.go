package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/mygoreply/internal/corpus"
	"github.com/timmy/mygoreply/internal/imageutil"
	"github.com/timmy/mygoreply/internal/logger"
	"github.com/timmy/mygoreply/internal/storage"
)

// ErrFetch is returned when the asset host cannot deliver a valid image.
var ErrFetch = errors.New("asset fetch failed")

// Asset is a downloaded sticker frame.
type Asset struct {
	Key         string
	URL         string
	ContentType string
	Data        []byte
	// Cached is true when Data came from object storage instead of the asset host.
	Cached bool
}

// Config configures a Fetcher.
type Config struct {
	BaseURL string
	Ext     string
	Prefix  string
	Timeout time.Duration
}

// Fetcher downloads sticker frames and keeps a copy in object storage so
// repeated recommendations do not hit the asset host again.
type Fetcher struct {
	client  *resty.Client
	store   storage.ObjectStorage
	baseURL string
	ext     string
	prefix  string
}

// NewFetcher creates a Fetcher. store may be nil, in which case nothing is
// cached.
func NewFetcher(store storage.ObjectStorage, cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ext := cfg.Ext
	if ext == "" {
		ext = "webp"
	}

	return &Fetcher{
		client:  resty.New().SetTimeout(timeout),
		store:   store,
		baseURL: cfg.BaseURL,
		ext:     ext,
		prefix:  cfg.Prefix,
	}
}

// Fetch returns the image for loc, from the cache when present.
// Parameters:
//   - ctx: context for storage and HTTP calls.
//   - loc: resolved corpus locator.
//
// Returns:
//   - *Asset: the validated image bytes.
//   - error: wraps ErrFetch on HTTP failure or an undecodable image.
func (f *Fetcher) Fetch(ctx context.Context, loc corpus.Locator) (*Asset, error) {
	key := storage.Key(f.prefix, loc.Key(f.ext))
	log := logger.With(logger.Fields{"key": key})

	if f.store != nil {
		asset, err := f.fromCache(ctx, key)
		if err == nil {
			return asset, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			log.WithError(err).Warn(ctx, "Asset cache read failed")
		}
	}

	url := loc.URL(f.baseURL, f.ext)
	start := time.Now()
	httpResp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}
	if httpResp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrFetch, url, httpResp.StatusCode())
	}

	data := httpResp.Body()
	info, err := imageutil.Inspect(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}

	asset := &Asset{
		Key:         key,
		URL:         url,
		ContentType: info.ContentType,
		Data:        data,
	}

	if f.store != nil {
		if err := f.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), info.ContentType); err != nil {
			log.WithError(err).Warn(ctx, "Asset cache write failed")
		} else {
			asset.URL = f.store.GetURL(key)
		}
	}

	log.With(logger.Fields{
		logger.FieldSize:       len(data),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Debug(ctx, "Fetched asset %s", url)
	return asset, nil
}

func (f *Fetcher) fromCache(ctx context.Context, key string) (*Asset, error) {
	exists, err := f.store.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, storage.ErrNotFound
	}

	rc, err := f.store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, imageutil.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	info, err := imageutil.Inspect(data)
	if err != nil {
		return nil, err
	}

	return &Asset{
		Key:         key,
		URL:         f.store.GetURL(key),
		ContentType: info.ContentType,
		Data:        data,
		Cached:      true,
	}, nil
}
