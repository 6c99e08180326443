package domain

import "time"

// JobStatus represents the status of a batch tagging job.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// TaggingJob records one batch tagging run and its counters.
type TaggingJob struct {
	ID           string     `gorm:"type:text;primaryKey" json:"id"`
	CorpusPath   string     `gorm:"type:text;not null" json:"corpus_path"`
	Status       JobStatus  `gorm:"type:text;default:running" json:"status"`
	TotalEntries int        `gorm:"default:0" json:"total_entries"`
	StartIndex   int        `gorm:"default:0" json:"start_index"`
	Classified   int        `gorm:"default:0" json:"classified"`
	CacheHits    int        `gorm:"default:0" json:"cache_hits"`
	Blocked      int        `gorm:"default:0" json:"blocked"`
	Failed       int        `gorm:"default:0" json:"failed"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorLog     string     `json:"error_log,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for TaggingJob.
func (TaggingJob) TableName() string {
	return "tagging_jobs"
}
