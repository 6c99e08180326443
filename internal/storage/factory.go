package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/timmy/mygoreply/internal/config"
	"github.com/timmy/mygoreply/internal/logger"
)

// ErrDisabled is returned by NewStorage when storage.enabled is false.
var ErrDisabled = errors.New("object storage disabled")

// NewStorage creates the configured ObjectStorage.
// Parameters:
//   - ctx: context for client initialization.
//   - cfg: storage section; type "memory" selects the in-process backend.
//
// Returns:
//   - ObjectStorage: initialized backend.
//   - error: ErrDisabled when storage is switched off, or a client error.
func NewStorage(ctx context.Context, cfg *config.StorageConfig) (ObjectStorage, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if cfg.Type == "memory" {
		return NewMemoryStorage(cfg.PublicURL), nil
	}

	s, err := NewS3Storage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Key joins a prefix and name into an object key.
func Key(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// PublishFile uploads a local file under prefix/<base name>.
// Parameters:
//   - ctx: context for the upload.
//   - store: destination storage.
//   - prefix: key prefix, typically storage.artifact_prefix.
//   - localPath: file to upload.
//
// Returns:
//   - string: public URL of the uploaded object.
//   - error: non-nil if the file cannot be read or uploaded.
func PublishFile(ctx context.Context, store ObjectStorage, prefix, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := Key(prefix, filepath.Base(localPath))
	if err := store.Upload(ctx, key, f, info.Size(), contentType); err != nil {
		return "", err
	}

	url := store.GetURL(key)
	logger.With(logger.Fields{
		"key":            key,
		logger.FieldSize: info.Size(),
	}).Info(ctx, "Published artifact %s", url)
	return url, nil
}
