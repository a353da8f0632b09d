package summary

import (
	"context"
	"strings"
	"testing"

	"github.com/protokol-team/protokol/internal/domain/entities"
)

func TestSummarize_NoSegmentsStoresEmptyResult(t *testing.T) {
	chat := &fakeChatter{}
	results := &fakeResults{}
	svc := newTestService(chat, &fakeEmbedder{}, &fakeSearcher{}, &fakeDrafts{}, results)

	if err := svc.Summarize(context.Background(), testJob(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results.result == nil {
		t.Fatalf("expected an empty result to be stored")
	}
	if len(results.result.Sections) != 0 || len(results.result.ActionItems) != 0 {
		t.Fatalf("expected empty result, got %+v", results.result)
	}
	if len(chat.prompts) != 0 {
		t.Fatalf("no model calls expected for an empty meeting")
	}
}

func TestSummarize_EndToEndStoresDraftAndResult(t *testing.T) {
	segments := []entities.Segment{
		seg(1, "alice", 0, 1, "обсудили сроки релиза"),
		seg(2, "bob", 1, 2, "нужно починить деплой"),
	}
	chat := &fakeChatter{responses: []string{
		"черновик встречи",
		`{"sections":[{"title":"Итоги","text":"Обсудили релиз","evidence_ids":[1,2]}],"action_items":[]}`,
	}}
	drafts := &fakeDrafts{}
	results := &fakeResults{}
	svc := newTestService(chat, &fakeEmbedder{vec: []float32{1}}, &fakeSearcher{}, drafts, results)
	// One batch: both segments fit the test chunk limit.
	svc.cfg.ChunkCharLimit = 10000

	if err := svc.Summarize(context.Background(), testJob(), segments); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if drafts.draft != "черновик встречи" {
		t.Fatalf("expected draft to be stored, got %q", drafts.draft)
	}
	if results.result == nil || len(results.result.Sections) != 1 {
		t.Fatalf("expected one stored section, got %+v", results.result)
	}

	sec := results.result.Sections[0]
	if sec.StartTS == nil || *sec.StartTS != 0 || sec.EndTS == nil || *sec.EndTS != 2 {
		t.Fatalf("expected evidence-backed time range 0-2, got %+v", sec)
	}
	if !strings.Contains(chat.prompts[1], "черновик встречи") {
		t.Fatalf("final prompt must carry the draft: %q", chat.prompts[1])
	}
}
