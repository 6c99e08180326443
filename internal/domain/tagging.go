package domain

import "time"

// Checkpoint is the durable resume point of a batch tagging run.
// Index is the next corpus position that has not been processed yet.
type Checkpoint struct {
	Index int                 `json:"index"`
	Cache map[string][]string `json:"cache"`
}

// AuditRecord is one row of the tagging audit log.
type AuditRecord struct {
	Timestamp time.Time
	Index     int
	Text      string
	Blocked   bool
	Reason    string
	Tones     []string
	// Source is "blocked", "cache", "classifier" or "failed".
	Source string
}
