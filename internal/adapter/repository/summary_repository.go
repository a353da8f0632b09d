package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/protokol-team/protokol/internal/domain/entities"
)

// SummaryRepository handles the synthesized protocol output
type SummaryRepository struct {
	db *gorm.DB
}

// NewSummaryRepository creates a new summary repository
func NewSummaryRepository(db *gorm.DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

// ReplaceResult atomically replaces the whole summary of a job.
// Delete-then-insert in one transaction: a successful run never leaves
// stale sections or action items from a previous attempt behind.
func (r *SummaryRepository) ReplaceResult(ctx context.Context, jobID uuid.UUID, result *entities.SummaryResult) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", jobID).Delete(&entities.SummarySection{}).Error; err != nil {
			return err
		}
		if err := tx.Where("job_id = ?", jobID).Delete(&entities.SummaryActionItem{}).Error; err != nil {
			return err
		}
		if result == nil {
			return nil
		}
		for i := range result.Sections {
			result.Sections[i].ID = 0
			result.Sections[i].JobID = jobID
			result.Sections[i].Idx = i + 1
			if err := tx.Create(&result.Sections[i]).Error; err != nil {
				return err
			}
		}
		for i := range result.ActionItems {
			result.ActionItems[i].ID = 0
			result.ActionItems[i].JobID = jobID
			if err := tx.Create(&result.ActionItems[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetResult returns the persisted summary of a job.
func (r *SummaryRepository) GetResult(ctx context.Context, jobID uuid.UUID) (*entities.SummaryResult, error) {
	result := &entities.SummaryResult{
		Sections:    []entities.SummarySection{},
		ActionItems: []entities.SummaryActionItem{},
	}
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("idx ASC").
		Find(&result.Sections).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("id ASC").
		Find(&result.ActionItems).Error; err != nil {
		return nil, err
	}
	return result, nil
}
