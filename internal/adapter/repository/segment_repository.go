package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/protokol-team/protokol/internal/domain/entities"
)

// SegmentRepository handles transcript segment data operations
type SegmentRepository struct {
	db *gorm.DB
}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository(db *gorm.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// UpsertSegments inserts segments keyed on (job_id, start_ts, end_ts).
// Re-running a stage updates text/speaker/language in place instead of
// duplicating units.
func (r *SegmentRepository) UpsertSegments(ctx context.Context, segments []entities.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "job_id"},
				{Name: "start_ts"},
				{Name: "end_ts"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"speaker", "text", "language", "updated_at"}),
		}).
		Create(&segments).Error
}

// ListByJob returns all segments of a job ordered by start time.
func (r *SegmentRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]entities.Segment, error) {
	var segments []entities.Segment
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("start_ts ASC, end_ts ASC").
		Find(&segments).Error; err != nil {
		return nil, err
	}
	return segments, nil
}
