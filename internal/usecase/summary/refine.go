package summary

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/protokol-team/protokol/internal/domain/entities"
	"github.com/protokol-team/protokol/pkg/ai"
)

const refineSystemPrompt = `Ты ведёшь протокол рабочей встречи. Тебе по шагам передают фрагменты расшифровки записи. На каждом шаге верни обновлённый черновик протокола: сохрани существенное из текущего черновика и добавь новое из фрагмента. Пиши кратко, по пунктам, на языке встречи. Отвечай только текстом черновика, без пояснений.`

const refineUserPrompt = `Шаг %d из %d.

Фрагмент расшифровки:
%s

Связанные фрагменты всей встречи:
%s

Текущий черновик протокола:
%s`

// refineDraft runs the sequential refinement loop over the batches and
// returns the final draft plus the evidence collected along the way.
// A failed or empty step keeps the previous draft; only context
// cancellation aborts the loop.
func (s *Service) refineDraft(ctx context.Context, job *entities.Job, batches [][]entities.Segment, segByID map[int64]entities.Segment) (string, *refCollector, error) {
	draft := ""
	collector := newRefCollector()

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		packed := PackContext(batch)
		refs := s.retrieve(ctx, job.ID, s.embedQuery(ctx, packed), segByID)
		collector.add(refs)

		prompt := fmt.Sprintf(refineUserPrompt,
			i+1, len(batches),
			packed,
			renderRefs(refs, s.cfg.MaxRefsChars),
			tailClip(draft, s.cfg.MaxDraftChars),
		)
		resp, err := s.chat.Chat(ctx, []ai.ChatMessage{
			{Role: "system", Content: refineSystemPrompt},
			{Role: "user", Content: prompt},
		}, ai.ChatOptions{
			NumCtx:      s.numCtx,
			NumPredict:  s.cfg.NumPredictBatch,
			Temperature: s.cfg.Temperature,
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", nil, err
			}
			if s.logger != nil {
				s.logger.Warn("refinement step failed, keeping draft",
					zap.String("job_id", job.ID.String()),
					zap.Int("step", i+1),
					zap.Int("steps", len(batches)),
					zap.Error(err),
				)
			}
			continue
		}

		resp = strings.TrimSpace(resp)
		if resp == "" {
			if s.logger != nil {
				s.logger.Warn("empty model response, keeping draft",
					zap.String("job_id", job.ID.String()),
					zap.Int("step", i+1),
				)
			}
			continue
		}
		draft = resp
	}
	return draft, collector, nil
}
