package entities

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the canonical pipeline status enum. The values are ordered:
// a stage is considered complete when the persisted status rank is at or
// past the stage's done-status rank. All "already processed" checks go
// through Rank, never through string sets.
type JobStatus string

const (
	JobStatusQueued       JobStatus = "queued"
	JobStatusSegmenting   JobStatus = "segmenting"
	JobStatusSegmented    JobStatus = "segmented"
	JobStatusTranscribing JobStatus = "transcribing"
	JobStatusTranscribed  JobStatus = "transcribed"
	JobStatusEmbedding    JobStatus = "embedding"
	JobStatusEmbedded     JobStatus = "embedded"
	JobStatusSummarizing  JobStatus = "summarizing"
	JobStatusDone         JobStatus = "done"

	// JobStatusError is absorbing and reachable from any non-terminal state.
	JobStatusError JobStatus = "error"
)

var statusRank = map[JobStatus]int{
	JobStatusQueued:       0,
	JobStatusSegmenting:   1,
	JobStatusSegmented:    2,
	JobStatusTranscribing: 3,
	JobStatusTranscribed:  4,
	JobStatusEmbedding:    5,
	JobStatusEmbedded:     6,
	JobStatusSummarizing:  7,
	JobStatusDone:         8,
}

// Rank returns the position of the status in the pipeline order.
// Error and unknown statuses rank below queued so a re-run starts over.
func (s JobStatus) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// IsTerminal reports whether no further stage may run for this status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// Job is one end-to-end pipeline run for one recording.
type Job struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Status       JobStatus `json:"status" gorm:"type:varchar(32);not null;index;default:'queued'"`
	Progress     int       `json:"progress" gorm:"type:integer;not null;default:0"`
	Step         string    `json:"step" gorm:"type:varchar(64);not null;default:''"`
	LastError    *string   `json:"last_error,omitempty" gorm:"type:text"`
	Attempts     int       `json:"attempts" gorm:"type:integer;not null;default:0"`
	AudioRef     string    `json:"audio_ref" gorm:"type:text;not null"`
	Language     string    `json:"language" gorm:"type:varchar(16);not null;default:'ru'"`
	OutputFormat string    `json:"output_format" gorm:"type:varchar(16);not null;default:'json'"`
	SummaryDraft string    `json:"summary_draft,omitempty" gorm:"type:text"`

	StartedAt  *time.Time `json:"started_at,omitempty" gorm:"type:timestamp"`
	FinishedAt *time.Time `json:"finished_at,omitempty" gorm:"type:timestamp"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// NewJob creates a queued job for a recording.
func NewJob(audioRef, language, format string) *Job {
	if language == "" {
		language = "ru"
	}
	if format == "" {
		format = "json"
	}
	return &Job{
		ID:           uuid.New(),
		Status:       JobStatusQueued,
		AudioRef:     audioRef,
		Language:     language,
		OutputFormat: format,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// TableName specifies the table name for GORM
func (Job) TableName() string {
	return "jobs"
}
