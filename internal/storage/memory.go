package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// MemoryStorage keeps objects in process memory. It backs tests and
// single-node deployments that only need the asset cache.
type MemoryStorage struct {
	mu        sync.RWMutex
	objects   map[string]memoryObject
	publicURL string
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStorage returns an empty store whose URLs start with publicURL.
func NewMemoryStorage(publicURL string) *MemoryStorage {
	return &MemoryStorage{
		objects:   make(map[string]memoryObject),
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

func (m *MemoryStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("upload %s: read %d bytes, expected %d", key, len(data), size)
	}

	m.mu.Lock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemoryStorage) GetURL(key string) string {
	return m.publicURL + "/" + strings.TrimPrefix(key, "/")
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	return ok, nil
}

// ContentType returns the content type recorded for key.
func (m *MemoryStorage) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.objects[key].contentType
}
