// Package dto holds the request and response shapes of the HTTP API.
package dto

import (
	"time"

	"github.com/protokol-team/protokol/internal/domain/entities"
)

// CreateJobRequest submits one recording for processing.
type CreateJobRequest struct {
	AudioRef     string `json:"audio_ref" validate:"required"`
	Language     string `json:"language" validate:"omitempty,max=16"`
	OutputFormat string `json:"output_format" validate:"omitempty,oneof=json"`
}

// JobResponse is the status view of a job.
type JobResponse struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Progress     int        `json:"progress"`
	Step         string     `json:"step"`
	LastError    *string    `json:"last_error,omitempty"`
	Attempts     int        `json:"attempts"`
	AudioRef     string     `json:"audio_ref"`
	Language     string     `json:"language"`
	OutputFormat string     `json:"output_format"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// JobFromEntity maps a job row to its API view.
func JobFromEntity(job *entities.Job) JobResponse {
	return JobResponse{
		ID:           job.ID.String(),
		Status:       string(job.Status),
		Progress:     job.Progress,
		Step:         job.Step,
		LastError:    job.LastError,
		Attempts:     job.Attempts,
		AudioRef:     job.AudioRef,
		Language:     job.Language,
		OutputFormat: job.OutputFormat,
		StartedAt:    job.StartedAt,
		FinishedAt:   job.FinishedAt,
		CreatedAt:    job.CreatedAt,
	}
}

// JobEventResponse is one row of the job timeline.
type JobEventResponse struct {
	ID        int64     `json:"id"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Step      string    `json:"step"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventsFromEntities maps job events to their API view.
func EventsFromEntities(events []entities.JobEvent) []JobEventResponse {
	out := make([]JobEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, JobEventResponse{
			ID:        e.ID,
			Status:    string(e.Status),
			Progress:  e.Progress,
			Step:      e.Step,
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

// ResultResponse is the stored protocol of a job.
type ResultResponse struct {
	JobID       string                       `json:"job_id"`
	Draft       string                       `json:"draft,omitempty"`
	Sections    []entities.SummarySection    `json:"sections"`
	ActionItems []entities.SummaryActionItem `json:"action_items"`
}
