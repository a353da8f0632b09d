package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SummarySection is one titled section of the final protocol with its
// time range and the ids of the segments that back it.
type SummarySection struct {
	ID          int64                       `json:"id" gorm:"primary_key;autoIncrement"`
	JobID       uuid.UUID                   `json:"job_id" gorm:"type:uuid;not null;index"`
	Idx         int                         `json:"idx" gorm:"type:integer;not null"`
	Title       string                      `json:"title" gorm:"type:text;not null;default:''"`
	Text        string                      `json:"text" gorm:"type:text;not null;default:''"`
	StartTS     *float64                    `json:"start_ts,omitempty"`
	EndTS       *float64                    `json:"end_ts,omitempty"`
	EvidenceIDs datatypes.JSONSlice[int64]  `json:"evidence_ids" gorm:"type:jsonb"`
	CreatedAt   time.Time                   `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (SummarySection) TableName() string {
	return "summary_sections"
}

// SummaryActionItem is one task extracted from the meeting.
type SummaryActionItem struct {
	ID        int64                      `json:"id" gorm:"primary_key;autoIncrement"`
	JobID     uuid.UUID                  `json:"job_id" gorm:"type:uuid;not null;index"`
	Assignee  *string                    `json:"assignee,omitempty" gorm:"type:varchar(255)"`
	DueDate   *time.Time                 `json:"due_date,omitempty" gorm:"type:date"`
	Task      string                     `json:"task" gorm:"type:text;not null"`
	Priority  *string                    `json:"priority,omitempty" gorm:"type:varchar(32)"`
	SourceIDs datatypes.JSONSlice[int64] `json:"source_ids" gorm:"type:jsonb"`
	CreatedAt time.Time                  `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (SummaryActionItem) TableName() string {
	return "summary_action_items"
}

// SummaryResult is the full synthesized output for a job. It is replaced
// wholesale (delete-then-insert) on every successful summarization run.
type SummaryResult struct {
	Sections    []SummarySection    `json:"sections"`
	ActionItems []SummaryActionItem `json:"action_items"`
}
