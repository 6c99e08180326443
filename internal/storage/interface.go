package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Download when the key does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStorage is the blob store used for published artifacts (labeled
// corpus, vector index) and for cached sticker images.
type ObjectStorage interface {
	// Upload stores size bytes read from reader under key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download opens the object stored under key. Callers close the reader.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns the public URL of key.
	GetURL(key string) string

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
}
