package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/protokol-team/protokol/internal/adapter/dto"
	"github.com/protokol-team/protokol/internal/domain/entities"
	"github.com/protokol-team/protokol/internal/infrastructure/cache"
)

// JobStore is the job persistence surface the handler needs.
type JobStore interface {
	CreateJob(ctx context.Context, job *entities.Job) error
	GetJobByID(ctx context.Context, jobID uuid.UUID) (*entities.Job, error)
	ListEvents(ctx context.Context, jobID uuid.UUID, after int64) ([]entities.JobEvent, error)
}

// ResultStore reads the stored protocol.
type ResultStore interface {
	GetResult(ctx context.Context, jobID uuid.UUID) (*entities.SummaryResult, error)
}

// Pipeline starts processing for a job.
type Pipeline interface {
	Submit(jobID uuid.UUID)
}

// JobHandler serves the job API: submit, status, events and result.
type JobHandler struct {
	jobs     JobStore
	results  ResultStore
	pipeline Pipeline
	status   *cache.StatusCache
	logger   *zap.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs JobStore, results ResultStore, pipeline Pipeline, status *cache.StatusCache, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		jobs:     jobs,
		results:  results,
		pipeline: pipeline,
		status:   status,
		logger:   logger,
	}
}

// Create registers a job for a recording and starts processing.
// Processing is fire-and-forget: the response returns immediately with
// the queued job.
func (h *JobHandler) Create(c echo.Context) error {
	var req dto.CreateJobRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	job := entities.NewJob(req.AudioRef, req.Language, req.OutputFormat)
	if err := h.jobs.CreateJob(c.Request().Context(), job); err != nil {
		if h.logger != nil {
			h.logger.Error("failed to create job", zap.Error(err))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create job")
	}

	h.pipeline.Submit(job.ID)
	return c.JSON(http.StatusAccepted, dto.JobFromEntity(job))
}

// Get returns the current job status. The Redis snapshot answers first
// when present; the database row is the fallback and source of truth.
func (h *JobHandler) Get(c echo.Context) error {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job id")
	}

	job, err := h.jobs.GetJobByID(c.Request().Context(), jobID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load job")
	}
	if job == nil {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}

	resp := dto.JobFromEntity(job)
	if snapshot, ok := h.status.Get(c.Request().Context(), jobID); ok {
		resp.Status = string(snapshot.Status)
		resp.Progress = snapshot.Progress
		resp.Step = snapshot.Step
	}
	return c.JSON(http.StatusOK, resp)
}

// Events returns the job timeline, optionally only entries after a
// given event id (?after=).
func (h *JobHandler) Events(c echo.Context) error {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job id")
	}

	var after int64
	if raw := c.QueryParam("after"); raw != "" {
		after, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid after parameter")
		}
	}

	events, err := h.jobs.ListEvents(c.Request().Context(), jobID, after)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load events")
	}
	return c.JSON(http.StatusOK, dto.EventsFromEntities(events))
}

// Result returns the stored protocol of a finished job. A job that is
// not done yet answers 409 with its current status.
func (h *JobHandler) Result(c echo.Context) error {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job id")
	}

	ctx := c.Request().Context()
	job, err := h.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load job")
	}
	if job == nil {
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	}
	if job.Status != entities.JobStatusDone {
		return echo.NewHTTPError(http.StatusConflict, "job is not done: "+string(job.Status))
	}

	result, err := h.results.GetResult(ctx, jobID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load result")
	}
	return c.JSON(http.StatusOK, dto.ResultResponse{
		JobID:       job.ID.String(),
		Draft:       job.SummaryDraft,
		Sections:    result.Sections,
		ActionItems: result.ActionItems,
	})
}
