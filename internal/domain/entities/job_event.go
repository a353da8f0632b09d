package entities

import (
	"time"

	"github.com/google/uuid"
)

// JobEvent is one append-only record of a job state transition.
// Events are written once and never updated; together they form the
// progress and audit trail of a run.
type JobEvent struct {
	ID        int64     `json:"id" gorm:"primary_key;autoIncrement"`
	JobID     uuid.UUID `json:"job_id" gorm:"type:uuid;not null;index"`
	Status    JobStatus `json:"status" gorm:"type:varchar(32);not null"`
	Progress  int       `json:"progress" gorm:"type:integer;not null"`
	Step      string    `json:"step" gorm:"type:varchar(64);not null"`
	Message   string    `json:"message" gorm:"type:text;not null;default:''"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (JobEvent) TableName() string {
	return "job_events"
}
