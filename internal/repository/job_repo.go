package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/mygoreply/internal/domain"
	"github.com/timmy/mygoreply/internal/tagging"
	"gorm.io/gorm"
)

// TaggingJobRepository stores batch tagging runs.
type TaggingJobRepository struct {
	db *gorm.DB
}

// NewTaggingJobRepository creates a new TaggingJobRepository.
func NewTaggingJobRepository(db *gorm.DB) *TaggingJobRepository {
	return &TaggingJobRepository{db: db}
}

// Start inserts a running job for corpusPath and returns it.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - corpusPath: input file of the run.
//   - total: number of corpus entries.
//
// Returns:
//   - *domain.TaggingJob: the persisted job with a fresh ID.
//   - error: non-nil if the insert fails.
func (r *TaggingJobRepository) Start(ctx context.Context, corpusPath string, total int) (*domain.TaggingJob, error) {
	now := time.Now()
	job := &domain.TaggingJob{
		ID:           uuid.NewString(),
		CorpusPath:   corpusPath,
		Status:       domain.JobStatusRunning,
		TotalEntries: total,
		StartedAt:    &now,
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// Finish records the final counters and status of a job. A nil runErr marks
// the job completed; context cancellation marks it canceled.
func (r *TaggingJobRepository) Finish(ctx context.Context, id string, stats tagging.Stats, runErr error) error {
	status := domain.JobStatusCompleted
	errLog := ""
	switch {
	case runErr == nil:
	case isCanceled(runErr):
		status = domain.JobStatusCanceled
		errLog = runErr.Error()
	default:
		status = domain.JobStatusFailed
		errLog = runErr.Error()
	}

	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.TaggingJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       status,
		"start_index":  stats.StartIndex,
		"classified":   stats.Classified,
		"cache_hits":   stats.CacheHits,
		"blocked":      stats.Blocked,
		"failed":       stats.Failed,
		"completed_at": &now,
		"error_log":    errLog,
	}).Error
}

// GetByID returns one job.
func (r *TaggingJobRepository) GetByID(ctx context.Context, id string) (*domain.TaggingJob, error) {
	var job domain.TaggingJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ListRecent returns up to limit jobs, newest first.
func (r *TaggingJobRepository) ListRecent(ctx context.Context, limit int) ([]domain.TaggingJob, error) {
	var jobs []domain.TaggingJob
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
