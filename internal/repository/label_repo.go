package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/mygoreply/internal/domain"
	"github.com/timmy/mygoreply/internal/tagging"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EntryLabelRepository stores the tags assigned to corpus positions.
type EntryLabelRepository struct {
	db *gorm.DB
}

// NewEntryLabelRepository creates a new EntryLabelRepository.
func NewEntryLabelRepository(db *gorm.DB) *EntryLabelRepository {
	return &EntryLabelRepository{db: db}
}

// Upsert creates or replaces the label of (job, position).
func (r *EntryLabelRepository) Upsert(ctx context.Context, label *domain.EntryLabel) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}, {Name: "position"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "tones", "blocked", "reason", "source", "labeled_at", "updated_at"}),
	}).Create(label).Error
}

// ListByJob returns a job's labels ordered by corpus position.
func (r *EntryLabelRepository) ListByJob(ctx context.Context, jobID string, limit, offset int) ([]domain.EntryLabel, error) {
	var labels []domain.EntryLabel
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("position ASC").
		Limit(limit).
		Offset(offset).
		Find(&labels).Error
	return labels, err
}

// LatestByText returns the most recent label for an exact text.
// Returns:
//   - *domain.EntryLabel: nil when the text was never labeled.
//   - error: non-nil if the query fails.
func (r *EntryLabelRepository) LatestByText(ctx context.Context, text string) (*domain.EntryLabel, error) {
	var label domain.EntryLabel
	err := r.db.WithContext(ctx).Where("text = ?", text).Order("labeled_at DESC").First(&label).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &label, nil
}

// CountByJob returns the number of labels recorded for a job.
func (r *EntryLabelRepository) CountByJob(ctx context.Context, jobID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.EntryLabel{}).Where("job_id = ?", jobID).Count(&n).Error
	return n, err
}

// LabelAuditLog mirrors the tagging audit log into the database.
type LabelAuditLog struct {
	repo  *EntryLabelRepository
	jobID string
}

var _ tagging.AuditLog = (*LabelAuditLog)(nil)

// NewLabelAuditLog creates an audit sink bound to one job.
func NewLabelAuditLog(repo *EntryLabelRepository, jobID string) *LabelAuditLog {
	return &LabelAuditLog{repo: repo, jobID: jobID}
}

// Append upserts the record keyed by (job, position).
func (l *LabelAuditLog) Append(ctx context.Context, rec domain.AuditRecord) error {
	label := &domain.EntryLabel{
		JobID:     l.jobID,
		Position:  rec.Index,
		Text:      rec.Text,
		Tones:     domain.StringArray(rec.Tones),
		Blocked:   rec.Blocked,
		Reason:    rec.Reason,
		Source:    rec.Source,
		LabeledAt: rec.Timestamp,
	}
	if err := l.repo.Upsert(ctx, label); err != nil {
		return fmt.Errorf("label %d: %w", rec.Index, err)
	}
	return nil
}
