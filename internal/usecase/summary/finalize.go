package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/protokol-team/protokol/internal/domain/entities"
	"github.com/protokol-team/protokol/pkg/ai"
)

const finalSystemPrompt = `Ты составляешь итоговый протокол встречи. Верни строго один JSON-объект по схеме:
{"sections":[{"title":"...","text":"...","start_ts":0.0,"end_ts":0.0,"evidence_ids":[1]}],"action_items":[{"assignee":"...","due_date":"YYYY-MM-DD","task":"...","priority":"high|medium|low","source_ids":[1]}]}
Поля start_ts, end_ts, assignee, due_date и priority могут быть null. Никакого текста вне JSON.`

const finalUserPrompt = `Черновик протокола:
%s

Опорные фрагменты записи:
%s

Составь итоговый протокол на языке "%s".`

const repairFormatPrompt = `Предыдущий ответ не является корректным JSON по схеме. Преобразуй его в один корректный JSON-объект по той же схеме, ничего не добавляя.

Ответ:
%s`

const repairContentPrompt = `В протоколе есть дефекты: %s.
Исправь их, опираясь на черновик, и верни весь протокол одним JSON-объектом по той же схеме.

Текущий протокол:
%s

Черновик:
%s`

// finalize turns the refined draft into the structured protocol. Output
// that cannot be parsed even after a repair call degrades to an empty
// result; only transport failures of the final call are fatal.
func (s *Service) finalize(ctx context.Context, job *entities.Job, draft string, collector *refCollector, segByID map[int64]entities.Segment) (*entities.SummaryResult, error) {
	globals := collector.globalRefs(s.cfg.TimeBuckets, s.cfg.PerBucket, s.cfg.MaxRefsChars)
	prompt := fmt.Sprintf(finalUserPrompt, tailClip(draft, s.cfg.MaxFinalDraftChars), globals, job.Language)

	raw, err := s.chat.Chat(ctx, chatMessages(finalSystemPrompt, prompt), s.finalOpts())
	if err != nil {
		return nil, fmt.Errorf("final synthesis failed: %w", err)
	}

	doc, ok := extractProtocol(raw)
	if !ok {
		repaired, repairErr := s.chat.Chat(ctx, chatMessages(finalSystemPrompt, fmt.Sprintf(repairFormatPrompt, raw)), s.finalOpts())
		if repairErr == nil {
			doc, ok = extractProtocol(repaired)
		}
		if !ok {
			if s.logger != nil {
				s.logger.Warn("unparseable protocol after repair, storing empty result",
					zap.String("job_id", job.ID.String()),
					zap.Int("raw_chars", len(raw)),
				)
			}
			return &entities.SummaryResult{}, nil
		}
	}

	if issues := validateDoc(doc, job.Language); len(issues) > 0 {
		if s.logger != nil {
			s.logger.Info("protocol has defects, requesting repair",
				zap.String("job_id", job.ID.String()),
				zap.Strings("issues", issues),
			)
		}
		current, _ := json.Marshal(doc)
		repairPrompt := fmt.Sprintf(repairContentPrompt,
			strings.Join(issues, "; "),
			string(current),
			tailClip(draft, s.cfg.MaxFinalDraftChars),
		)
		repaired, repairErr := s.chat.Chat(ctx, chatMessages(finalSystemPrompt, repairPrompt), s.finalOpts())
		if repairErr == nil {
			if fixed, fixedOK := extractProtocol(repaired); fixedOK {
				doc = fixed
			}
		}
	}

	result := buildResult(doc, job.ID)
	backfillTimes(result, segByID)
	return result, nil
}

func (s *Service) finalOpts() ai.ChatOptions {
	return ai.ChatOptions{
		NumCtx:      s.numCtx,
		NumPredict:  s.cfg.NumPredictFinal,
		Temperature: s.cfg.Temperature,
		JSONFormat:  true,
	}
}

func chatMessages(system, user string) []ai.ChatMessage {
	return []ai.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

// validateDoc lists the content defects a repair call should address.
// The language check applies to Russian meetings only.
func validateDoc(doc *protocolDoc, language string) []string {
	var issues []string
	for i, sec := range doc.Sections {
		if strings.TrimSpace(sec.Text) == "" {
			issues = append(issues, fmt.Sprintf("раздел %d: пустой текст", i+1))
		}
	}
	if language == "ru" {
		for i, item := range doc.ActionItems {
			if !isMostlyCyrillic(item.Task) {
				issues = append(issues, fmt.Sprintf("задача %d: не на русском языке", i+1))
			}
		}
	}
	return issues
}

func buildResult(doc *protocolDoc, jobID uuid.UUID) *entities.SummaryResult {
	res := &entities.SummaryResult{}
	for i, sec := range doc.Sections {
		res.Sections = append(res.Sections, entities.SummarySection{
			JobID:       jobID,
			Idx:         i + 1,
			Title:       strings.TrimSpace(sec.Title),
			Text:        strings.TrimSpace(sec.Text),
			StartTS:     sec.StartTS,
			EndTS:       sec.EndTS,
			EvidenceIDs: datatypes.NewJSONSlice(sec.EvidenceIDs),
		})
	}
	for _, item := range doc.ActionItems {
		task := strings.TrimSpace(item.Task)
		if task == "" {
			continue
		}
		res.ActionItems = append(res.ActionItems, entities.SummaryActionItem{
			JobID:     jobID,
			Assignee:  trimPtr(item.Assignee),
			DueDate:   safeDate(item.DueDate),
			Task:      task,
			Priority:  trimPtr(item.Priority),
			SourceIDs: datatypes.NewJSONSlice(item.SourceIDs),
		})
	}
	return res
}

// backfillTimes fills missing section time ranges deterministically from
// the evidence segments: min start and max end over the referenced ids.
func backfillTimes(res *entities.SummaryResult, segByID map[int64]entities.Segment) {
	for i := range res.Sections {
		sec := &res.Sections[i]
		if sec.StartTS != nil && sec.EndTS != nil {
			continue
		}
		var start, end *float64
		for _, id := range sec.EvidenceIDs {
			seg, ok := segByID[id]
			if !ok {
				continue
			}
			if start == nil || seg.StartTS < *start {
				v := seg.StartTS
				start = &v
			}
			if end == nil || seg.EndTS > *end {
				v := seg.EndTS
				end = &v
			}
		}
		if sec.StartTS == nil {
			sec.StartTS = start
		}
		if sec.EndTS == nil {
			sec.EndTS = end
		}
	}
}
