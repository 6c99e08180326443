// Package corpus loads the reaction-image dataset and resolves selected lines
// to published asset URLs.
package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/timmy/mygoreply/internal/domain"
)

// Corpus is the read-only dataset. It is shared across requests without locking.
type Corpus struct {
	entries []domain.Entry
}

// New wraps entries. The slice must not be modified afterwards.
func New(entries []domain.Entry) *Corpus {
	return &Corpus{entries: entries}
}

// Decode reads a JSON array of entries.
func Decode(r io.Reader) (*Corpus, error) {
	var entries []domain.Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode corpus: %w", err)
	}
	return New(entries), nil
}

// Load reads a corpus file.
func Load(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Entries returns the dataset. Callers must treat it as read-only.
func (c *Corpus) Entries() []domain.Entry {
	return c.entries
}

// Len is the number of entries.
func (c *Corpus) Len() int { return len(c.entries) }

// At returns the entry at position i.
func (c *Corpus) At(i int) (domain.Entry, bool) {
	if i < 0 || i >= len(c.entries) {
		return domain.Entry{}, false
	}
	return c.entries[i], true
}

// Texts returns every entry text in position order.
func (c *Corpus) Texts() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Text
	}
	return out
}

// UniqueTexts returns trimmed, non-empty texts with duplicates removed,
// keeping first occurrence order.
func (c *Corpus) UniqueTexts() []string {
	seen := make(map[string]struct{}, len(c.entries))
	out := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		t := strings.TrimSpace(e.Text)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Encode writes entries as an indented JSON array without ASCII escaping.
func Encode(w io.Writer, entries []domain.Entry) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if entries == nil {
		entries = []domain.Entry{}
	}
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}
	return nil
}

// WriteFile atomically replaces path with the encoded entries.
func WriteFile(path string, entries []domain.Entry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".corpus-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, entries); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
