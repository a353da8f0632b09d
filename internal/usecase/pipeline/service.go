// Package pipeline drives one recording through
// segment → transcribe → embed → summarize as a resumable, idempotent
// state machine. Stage completion is judged only from the persisted job
// status rank, so a re-submitted job resumes at its first incomplete
// stage and never repeats finished work.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/protokol-team/protokol/internal/domain/entities"
	"github.com/protokol-team/protokol/internal/infrastructure/cache"
	"github.com/protokol-team/protokol/internal/infrastructure/external/asr"
	"github.com/protokol-team/protokol/internal/infrastructure/lock"
)

// JobStore is the job persistence surface the pipeline needs.
type JobStore interface {
	GetJobByID(ctx context.Context, jobID uuid.UUID) (*entities.Job, error)
	SetStatus(ctx context.Context, jobID uuid.UUID, status entities.JobStatus, progress int, step, message string) error
	MarkRunStarted(ctx context.Context, jobID uuid.UUID) error
}

// SegmentStore persists transcript segments.
type SegmentStore interface {
	UpsertSegments(ctx context.Context, segments []entities.Segment) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]entities.Segment, error)
}

// EmbeddingStore persists segment vectors.
type EmbeddingStore interface {
	UpsertEmbedding(ctx context.Context, segmentID int64, vec []float32) error
	EmbeddedSegmentIDs(ctx context.Context, jobID uuid.UUID) (map[int64]bool, error)
}

// AudioFetcher materializes the source recording as a local temp file.
type AudioFetcher interface {
	FetchToTemp(ctx context.Context, objectName string) (string, error)
}

// Embedder produces segment vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Summarizer produces and stores the structured protocol.
type Summarizer interface {
	Summarize(ctx context.Context, job *entities.Job, segments []entities.Segment) error
}

// Service is the pipeline orchestrator.
type Service struct {
	jobs        JobStore
	segments    SegmentStore
	embeddings  EmbeddingStore
	audio       AudioFetcher
	segmenter   asr.Segmenter
	transcriber asr.Transcriber
	embedder    Embedder
	summarizer  Summarizer
	locker      lock.Locker
	status      *cache.StatusCache
	logger      *zap.Logger
}

// NewService creates a new pipeline service.
func NewService(
	jobs JobStore,
	segments SegmentStore,
	embeddings EmbeddingStore,
	audio AudioFetcher,
	segmenter asr.Segmenter,
	transcriber asr.Transcriber,
	embedder Embedder,
	summarizer Summarizer,
	locker lock.Locker,
	status *cache.StatusCache,
	logger *zap.Logger,
) *Service {
	return &Service{
		jobs:        jobs,
		segments:    segments,
		embeddings:  embeddings,
		audio:       audio,
		segmenter:   segmenter,
		transcriber: transcriber,
		embedder:    embedder,
		summarizer:  summarizer,
		locker:      locker,
		status:      status,
		logger:      logger,
	}
}

// stage is one row of the fixed dispatch table. progress is the hint
// reported while the stage runs; doneProgress < 0 keeps the stored value.
type stage struct {
	name          string
	runningStatus entities.JobStatus
	doneStatus    entities.JobStatus
	progress      int
	doneProgress  int
	run           func(ctx context.Context, rs *runState) error
}

func (s *Service) stages() []stage {
	return []stage{
		{"segment", entities.JobStatusSegmenting, entities.JobStatusSegmented, 10, -1, s.runSegmentation},
		{"transcribe", entities.JobStatusTranscribing, entities.JobStatusTranscribed, 45, -1, s.runTranscription},
		{"embed", entities.JobStatusEmbedding, entities.JobStatusEmbedded, 70, -1, s.runEmbedding},
		{"summarize", entities.JobStatusSummarizing, entities.JobStatusDone, 90, 100, s.runSummarization},
	}
}

// runState carries per-run resources: the job row, the lazily fetched
// audio file and the last reported progress.
type runState struct {
	job          *entities.Job
	audioPath    string
	lastProgress int
	step         string
}

func (rs *runState) ensureAudio(ctx context.Context, fetcher AudioFetcher) (string, error) {
	if rs.audioPath != "" {
		return rs.audioPath, nil
	}
	path, err := fetcher.FetchToTemp(ctx, rs.job.AudioRef)
	if err != nil {
		return "", fmt.Errorf("failed to fetch audio %q: %w", rs.job.AudioRef, err)
	}
	rs.audioPath = path
	return path, nil
}

func (rs *runState) cleanup(logger *zap.Logger) {
	if rs.audioPath == "" {
		return
	}
	if err := os.Remove(rs.audioPath); err != nil && logger != nil {
		logger.Warn("failed to remove temp audio file",
			zap.String("path", rs.audioPath),
			zap.Error(err),
		)
	}
	rs.audioPath = ""
}

// Submit starts processing in a detached goroutine. A duplicate
// submission finds the lock held and returns without side effects.
func (s *Service) Submit(jobID uuid.UUID) {
	go func() {
		if err := s.Run(context.Background(), jobID); err != nil && s.logger != nil {
			s.logger.Error("pipeline run failed",
				zap.String("job_id", jobID.String()),
				zap.Error(err),
			)
		}
	}()
}

// Run executes the pipeline for one job under the cross-process lock.
func (s *Service) Run(ctx context.Context, jobID uuid.UUID) (err error) {
	release, acquired, err := s.locker.TryAcquire(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to acquire job lock: %w", err)
	}
	if !acquired {
		if s.logger != nil {
			s.logger.Info("job is already being processed, skipping",
				zap.String("job_id", jobID.String()),
			)
		}
		return nil
	}
	defer release()

	job, err := s.jobs.GetJobByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job %s not found", jobID)
	}
	if job.Status == entities.JobStatusDone {
		if s.logger != nil {
			s.logger.Info("job is already done, nothing to do",
				zap.String("job_id", jobID.String()),
			)
		}
		return nil
	}

	if err := s.jobs.MarkRunStarted(ctx, jobID); err != nil {
		return fmt.Errorf("failed to mark run started: %w", err)
	}

	rs := &runState{job: job, lastProgress: job.Progress}
	defer rs.cleanup(s.logger)
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic: %v", r)
			s.transition(ctx, rs, entities.JobStatusError, -1, rs.step, msg)
			err = fmt.Errorf("pipeline panicked at step %q: %v", rs.step, r)
		}
	}()

	if s.logger != nil {
		s.logger.Info("🚀 pipeline run started",
			zap.String("job_id", jobID.String()),
			zap.String("status", string(job.Status)),
			zap.Int("attempt", job.Attempts+1),
		)
	}

	for _, st := range s.stages() {
		current, err := s.jobs.GetJobByID(ctx, jobID)
		if err != nil {
			return fmt.Errorf("failed to re-read job status: %w", err)
		}
		if current == nil {
			return fmt.Errorf("job %s disappeared mid-run", jobID)
		}
		if current.Status.Rank() >= st.doneStatus.Rank() {
			if s.logger != nil {
				s.logger.Debug("stage already complete, skipping",
					zap.String("job_id", jobID.String()),
					zap.String("stage", st.name),
				)
			}
			continue
		}

		rs.step = st.name
		s.transition(ctx, rs, st.runningStatus, st.progress, st.name, "")

		if runErr := st.run(ctx, rs); runErr != nil {
			s.transition(ctx, rs, entities.JobStatusError, -1, st.name, runErr.Error())
			return fmt.Errorf("stage %q failed: %w", st.name, runErr)
		}
		s.transition(ctx, rs, st.doneStatus, st.doneProgress, st.name, "")
	}

	if s.logger != nil {
		s.logger.Info("🎉 pipeline run complete", zap.String("job_id", jobID.String()))
	}
	return nil
}

// transition persists a status change plus its event and mirrors the
// snapshot into the status cache.
func (s *Service) transition(ctx context.Context, rs *runState, status entities.JobStatus, progress int, step, message string) {
	if err := s.jobs.SetStatus(ctx, rs.job.ID, status, progress, step, message); err != nil && s.logger != nil {
		s.logger.Error("failed to persist status transition",
			zap.String("job_id", rs.job.ID.String()),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
	if progress < 0 {
		progress = rs.lastProgress
	} else {
		rs.lastProgress = progress
	}
	s.status.Set(ctx, rs.job.ID, cache.CachedStatus{Status: status, Progress: progress, Step: step})
}

// runSegmentation diarizes the recording and stores one empty-text
// segment per speaker turn. Transcription fills the text in later
// through the same upsert key.
func (s *Service) runSegmentation(ctx context.Context, rs *runState) error {
	path, err := rs.ensureAudio(ctx, s.audio)
	if err != nil {
		return err
	}
	turns, err := s.segmenter.Segment(ctx, path)
	if err != nil {
		return err
	}

	segments := make([]entities.Segment, 0, len(turns))
	for _, t := range turns {
		segments = append(segments, entities.Segment{
			JobID:    rs.job.ID,
			Speaker:  t.Label,
			StartTS:  t.Start,
			EndTS:    t.End,
			Language: rs.job.Language,
		})
	}
	if s.logger != nil {
		s.logger.Info("segmentation produced speaker turns",
			zap.String("job_id", rs.job.ID.String()),
			zap.Int("turns", len(segments)),
		)
	}
	return s.segments.UpsertSegments(ctx, segments)
}

// runTranscription fills the text of every still-empty segment window.
func (s *Service) runTranscription(ctx context.Context, rs *runState) error {
	path, err := rs.ensureAudio(ctx, s.audio)
	if err != nil {
		return err
	}
	segments, err := s.segments.ListByJob(ctx, rs.job.ID)
	if err != nil {
		return err
	}

	for i := range segments {
		if strings.TrimSpace(segments[i].Text) != "" {
			continue
		}
		text, err := s.transcriber.TranscribeWindow(ctx, path, segments[i].StartTS, segments[i].EndTS, rs.job.Language)
		if err != nil {
			return err
		}
		segments[i].Text = text
	}
	return s.segments.UpsertSegments(ctx, segments)
}

// runEmbedding vectorizes segments that have text and no vector yet.
// A failed embedding skips the segment instead of failing the stage.
func (s *Service) runEmbedding(ctx context.Context, rs *runState) error {
	segments, err := s.segments.ListByJob(ctx, rs.job.ID)
	if err != nil {
		return err
	}
	embedded, err := s.embeddings.EmbeddedSegmentIDs(ctx, rs.job.ID)
	if err != nil {
		return err
	}

	for _, seg := range segments {
		if embedded[seg.ID] || strings.TrimSpace(seg.Text) == "" {
			continue
		}
		vec, err := s.embedder.Embed(ctx, seg.Text)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.logger != nil {
				s.logger.Warn("embedding failed, skipping segment",
					zap.String("job_id", rs.job.ID.String()),
					zap.Int64("segment_id", seg.ID),
					zap.Error(err),
				)
			}
			continue
		}
		if err := s.embeddings.UpsertEmbedding(ctx, seg.ID, vec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) runSummarization(ctx context.Context, rs *runState) error {
	segments, err := s.segments.ListByJob(ctx, rs.job.ID)
	if err != nil {
		return err
	}
	return s.summarizer.Summarize(ctx, rs.job, segments)
}
