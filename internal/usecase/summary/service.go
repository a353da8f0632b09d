// Package summary turns the embedded transcript of a job into a bounded
// structured protocol: a sequential draft refinement loop over
// char-bounded transcript batches, retrieval-augmented with the most
// similar segments of the whole meeting, then a single JSON synthesis
// call with format and content repair.
package summary

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/protokol-team/protokol/internal/domain/entities"
	"github.com/protokol-team/protokol/pkg/ai"
	"github.com/protokol-team/protokol/pkg/config"
)

// Chatter issues chat-completion calls.
type Chatter interface {
	Chat(ctx context.Context, messages []ai.ChatMessage, opts ai.ChatOptions) (string, error)
}

// DraftSaver persists the running draft on the job record.
type DraftSaver interface {
	SaveDraft(ctx context.Context, jobID uuid.UUID, draft string) error
}

// ResultWriter replaces the stored protocol of a job.
type ResultWriter interface {
	ReplaceResult(ctx context.Context, jobID uuid.UUID, result *entities.SummaryResult) error
}

// Service produces the structured protocol for a fully embedded job.
type Service struct {
	chat    Chatter
	embed   Embedder
	search  SimilaritySearcher
	drafts  DraftSaver
	results ResultWriter
	cfg     *config.SummaryConfig
	numCtx  int
	logger  *zap.Logger
}

// NewService creates a new summary service.
func NewService(
	chat Chatter,
	embed Embedder,
	search SimilaritySearcher,
	drafts DraftSaver,
	results ResultWriter,
	cfg *config.SummaryConfig,
	ollama *config.OllamaConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		chat:    chat,
		embed:   embed,
		search:  search,
		drafts:  drafts,
		results: results,
		cfg:     cfg,
		numCtx:  ollama.NumCtx,
		logger:  logger,
	}
}

// Summarize runs refinement and final synthesis for the job and replaces
// its stored result. Zero segments is a valid meeting with an empty
// protocol.
func (s *Service) Summarize(ctx context.Context, job *entities.Job, segments []entities.Segment) error {
	if len(segments) == 0 {
		if s.logger != nil {
			s.logger.Info("no segments to summarize, storing empty result",
				zap.String("job_id", job.ID.String()),
			)
		}
		return s.results.ReplaceResult(ctx, job.ID, &entities.SummaryResult{})
	}

	segByID := make(map[int64]entities.Segment, len(segments))
	for _, seg := range segments {
		segByID[seg.ID] = seg
	}

	batches := SplitIntoBatches(segments, s.cfg.ChunkCharLimit)
	if s.logger != nil {
		s.logger.Info("📝 starting summarization",
			zap.String("job_id", job.ID.String()),
			zap.Int("segments", len(segments)),
			zap.Int("batches", len(batches)),
		)
	}

	draft, collector, err := s.refineDraft(ctx, job, batches, segByID)
	if err != nil {
		return err
	}

	if s.drafts != nil {
		if err := s.drafts.SaveDraft(ctx, job.ID, draft); err != nil && s.logger != nil {
			s.logger.Warn("failed to store summary draft",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	}

	result, err := s.finalize(ctx, job, draft, collector, segByID)
	if err != nil {
		return err
	}
	if err := s.results.ReplaceResult(ctx, job.ID, result); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("✅ summarization complete",
			zap.String("job_id", job.ID.String()),
			zap.Int("sections", len(result.Sections)),
			zap.Int("action_items", len(result.ActionItems)),
		)
	}
	return nil
}
