package tagging

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/timmy/mygoreply/internal/domain"
)

// AuditHeader is the first row of a new audit log.
var AuditHeader = []string{"timestamp", "text", "blocked", "reason", "tones"}

// CSVAuditLog appends rows to a CSV file. Each row is flushed before Append
// returns.
type CSVAuditLog struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// OpenCSVAuditLog opens path for appending, writing the header when the file
// is new or empty.
func OpenCSVAuditLog(path string) (*CSVAuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat audit log: %w", err)
	}

	l := &CSVAuditLog{file: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := l.writeRow(AuditHeader); err != nil {
			f.Close()
			return nil, err
		}
	}
	return l, nil
}

func (l *CSVAuditLog) Append(ctx context.Context, rec domain.AuditRecord) error {
	tones, err := encodeTones(rec.Tones)
	if err != nil {
		return err
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	row := []string{
		ts.Format("2006-01-02T15:04:05.000000"),
		rec.Text,
		auditBool(rec.Blocked),
		rec.Reason,
		tones,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeRow(row)
}

func (l *CSVAuditLog) writeRow(row []string) error {
	if l.file == nil {
		return errors.New("audit log is closed")
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("failed to write audit row: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("failed to flush audit log: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (l *CSVAuditLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	l.w.Flush()
	err := l.file.Close()
	l.file = nil
	return err
}

// encodeTones renders the tag list as a JSON array without escaping non-ASCII.
func encodeTones(tones []string) (string, error) {
	if tones == nil {
		tones = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tones); err != nil {
		return "", fmt.Errorf("failed to encode tones: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// auditBool keeps the True/False spelling of the existing audit logs.
func auditBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// ParseAuditBool accepts both True/False and Go's true/false.
func ParseAuditBool(s string) (bool, error) {
	switch s {
	case "True":
		return true, nil
	case "False":
		return false, nil
	}
	return strconv.ParseBool(s)
}
