package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/protokol-team/protokol/internal/domain/entities"
)

// JobRepository handles job and job-event data operations
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// CreateJob creates a new job
func (r *JobRepository) CreateJob(ctx context.Context, job *entities.Job) error {
	if job == nil {
		return errors.New("job cannot be nil")
	}
	return r.db.WithContext(ctx).Create(job).Error
}

// GetJobByID retrieves a job by ID
func (r *JobRepository) GetJobByID(ctx context.Context, jobID uuid.UUID) (*entities.Job, error) {
	var job entities.Job
	if err := r.db.WithContext(ctx).Where("id = ?", jobID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// SetStatus persists a status transition and appends the matching event.
// Progress < 0 leaves the stored progress untouched.
func (r *JobRepository) SetStatus(ctx context.Context, jobID uuid.UUID, status entities.JobStatus, progress int, step, message string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"step":       step,
		"updated_at": now,
	}
	if progress >= 0 {
		updates["progress"] = progress
	}
	switch status {
	case entities.JobStatusDone:
		updates["finished_at"] = now
		updates["last_error"] = nil
	case entities.JobStatusError:
		updates["finished_at"] = now
		updates["last_error"] = message
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Job{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
			return err
		}
		event := &entities.JobEvent{
			JobID:    jobID,
			Status:   status,
			Progress: progress,
			Step:     step,
			Message:  message,
		}
		if progress < 0 {
			var job entities.Job
			if err := tx.Select("progress").Where("id = ?", jobID).First(&job).Error; err == nil {
				event.Progress = job.Progress
			}
		}
		return tx.Create(event).Error
	})
}

// MarkRunStarted stamps started_at and bumps the attempt counter.
func (r *JobRepository) MarkRunStarted(ctx context.Context, jobID uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entities.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"started_at": now,
			"updated_at": now,
		}).Error
}

// SaveDraft stores the refinement-loop draft on the job record.
func (r *JobRepository) SaveDraft(ctx context.Context, jobID uuid.UUID, draft string) error {
	return r.db.WithContext(ctx).
		Model(&entities.Job{}).
		Where("id = ?", jobID).
		Update("summary_draft", draft).Error
}

// ListEvents returns events for a job with id greater than after, oldest first.
func (r *JobRepository) ListEvents(ctx context.Context, jobID uuid.UUID, after int64) ([]entities.JobEvent, error) {
	var events []entities.JobEvent
	if err := r.db.WithContext(ctx).
		Where("job_id = ? AND id > ?", jobID, after).
		Order("id ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
