package tagging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/timmy/mygoreply/internal/domain"
)

// ErrPersistence marks checkpoint, audit or output write failures. A run that
// hits it stops, since it can no longer be resumed reliably.
var ErrPersistence = errors.New("tagging: persistence failure")

// Store persists the resume point of a run.
type Store interface {
	// Load returns the saved checkpoint, or nil when none exists.
	Load(ctx context.Context) (*domain.Checkpoint, error)
	Save(ctx context.Context, cp *domain.Checkpoint) error
}

// AuditLog receives one record per processed entry.
type AuditLog interface {
	Append(ctx context.Context, rec domain.AuditRecord) error
}

// FileStore keeps the checkpoint as a JSON file, replaced atomically on save.
type FileStore struct {
	path string
}

// NewFileStore creates a checkpoint store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the checkpoint file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (*domain.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var cp domain.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", s.path, err)
	}
	if cp.Cache == nil {
		cp.Cache = make(map[string][]string)
	}
	return &cp, nil
}

func (s *FileStore) Save(ctx context.Context, cp *domain.Checkpoint) error {
	data, err := encodeCheckpoint(cp)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint: %w", err)
	}
	return nil
}

// encodeCheckpoint renders {"index","cache"} with non-ASCII text kept readable.
func encodeCheckpoint(cp *domain.Checkpoint) ([]byte, error) {
	out := domain.Checkpoint{Index: cp.Index, Cache: cp.Cache}
	if out.Cache == nil {
		out.Cache = map[string][]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return buf.Bytes(), nil
}

// MemoryStore is an in-process Store. Saved checkpoints are deep copies.
type MemoryStore struct {
	mu    sync.Mutex
	cp    *domain.Checkpoint
	saves int
	// Err, when set, is returned by Save.
	Err error
}

// NewMemoryStore creates a store, optionally seeded with a checkpoint.
func NewMemoryStore(seed *domain.Checkpoint) *MemoryStore {
	s := &MemoryStore{}
	if seed != nil {
		s.cp = copyCheckpoint(seed)
	}
	return s
}

func (s *MemoryStore) Load(ctx context.Context) (*domain.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cp == nil {
		return nil, nil
	}
	return copyCheckpoint(s.cp), nil
}

func (s *MemoryStore) Save(ctx context.Context, cp *domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.cp = copyCheckpoint(cp)
	s.saves++
	return nil
}

// Saves reports how many checkpoints were written.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func copyCheckpoint(cp *domain.Checkpoint) *domain.Checkpoint {
	out := &domain.Checkpoint{Index: cp.Index, Cache: make(map[string][]string, len(cp.Cache))}
	for k, v := range cp.Cache {
		out.Cache[k] = append([]string{}, v...)
	}
	return out
}

// MemoryAuditLog collects records in memory.
type MemoryAuditLog struct {
	mu      sync.Mutex
	records []domain.AuditRecord
	// Err, when set, is returned by Append.
	Err error
}

func (l *MemoryAuditLog) Append(ctx context.Context, rec domain.AuditRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	l.records = append(l.records, rec)
	return nil
}

// Records returns a copy of everything appended so far.
func (l *MemoryAuditLog) Records() []domain.AuditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.AuditRecord(nil), l.records...)
}

// MultiAuditLog appends to every log in order and stops at the first error.
type MultiAuditLog []AuditLog

func (m MultiAuditLog) Append(ctx context.Context, rec domain.AuditRecord) error {
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.Append(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
