package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Segment is one speaker-attributed transcript unit of a job.
// (job_id, start_ts, end_ts) is unique: segmentation and transcription both
// write through an upsert on that key, so re-running a stage never
// duplicates units.
type Segment struct {
	ID        int64     `json:"id" gorm:"primary_key;autoIncrement"`
	JobID     uuid.UUID `json:"job_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_segment_window,priority:1"`
	Speaker   string    `json:"speaker" gorm:"type:varchar(50);not null;default:''"`
	StartTS   float64   `json:"start_ts" gorm:"not null;uniqueIndex:idx_segment_window,priority:2"`
	EndTS     float64   `json:"end_ts" gorm:"not null;uniqueIndex:idx_segment_window,priority:3"`
	Text      string    `json:"text" gorm:"type:text;not null;default:''"`
	Language  string    `json:"language" gorm:"type:varchar(16);not null;default:''"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Segment) TableName() string {
	return "segments"
}

// SegmentEmbedding is the vector for exactly one segment. It is owned by
// the segment and cascade-deleted with it.
type SegmentEmbedding struct {
	SegmentID int64           `json:"segment_id" gorm:"primary_key"`
	Embedding pgvector.Vector `json:"-" gorm:"type:vector(768)"`
	CreatedAt time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (SegmentEmbedding) TableName() string {
	return "segment_embeddings"
}
