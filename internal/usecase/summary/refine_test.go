package summary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/protokol-team/protokol/internal/domain/entities"
)

func refineInput() ([][]entities.Segment, map[int64]entities.Segment) {
	segments := []entities.Segment{
		seg(1, "alice", 0, 1, "обсудили сроки релиза"),
		seg(2, "bob", 1, 2, "нужно починить деплой"),
		seg(3, "alice", 2, 3, "договорились о встрече"),
	}
	segByID := make(map[int64]entities.Segment, len(segments))
	for _, s := range segments {
		segByID[s.ID] = s
	}
	batches := make([][]entities.Segment, 0, len(segments))
	for _, s := range segments {
		batches = append(batches, []entities.Segment{s})
	}
	return batches, segByID
}

func TestRefineDraft_UpdatesDraftPerStep(t *testing.T) {
	batches, segByID := refineInput()
	chat := &fakeChatter{responses: []string{"черновик 1", "черновик 2", "черновик 3"}}
	svc := newTestService(chat, &fakeEmbedder{err: errors.New("embeddings down")}, &fakeSearcher{}, nil, nil)

	draft, _, err := svc.refineDraft(context.Background(), testJob(), batches, segByID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft != "черновик 3" {
		t.Fatalf("expected final draft, got %q", draft)
	}
	if len(chat.prompts) != 3 {
		t.Fatalf("expected 3 chat calls, got %d", len(chat.prompts))
	}
	if !strings.Contains(chat.prompts[1], "черновик 1") {
		t.Fatalf("step 2 prompt must carry the previous draft: %q", chat.prompts[1])
	}
	if !strings.Contains(chat.prompts[0], "Шаг 1 из 3") {
		t.Fatalf("prompt must carry step counter: %q", chat.prompts[0])
	}
}

func TestRefineDraft_EmptyResponseKeepsDraft(t *testing.T) {
	batches, segByID := refineInput()
	chat := &fakeChatter{responses: []string{"черновик 1", "", "  \n "}}
	svc := newTestService(chat, &fakeEmbedder{err: errors.New("down")}, &fakeSearcher{}, nil, nil)

	draft, _, err := svc.refineDraft(context.Background(), testJob(), batches, segByID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if draft != "черновик 1" {
		t.Fatalf("empty responses must never erase the draft, got %q", draft)
	}
}

func TestRefineDraft_ChatErrorContinues(t *testing.T) {
	batches, segByID := refineInput()
	chat := &fakeChatter{
		responses: []string{"", "черновик 2", "черновик 3"},
		errs:      []error{errors.New("model busy")},
	}
	svc := newTestService(chat, &fakeEmbedder{err: errors.New("down")}, &fakeSearcher{}, nil, nil)

	draft, _, err := svc.refineDraft(context.Background(), testJob(), batches, segByID)
	if err != nil {
		t.Fatalf("step failure must not abort the loop: %v", err)
	}
	if draft != "черновик 3" {
		t.Fatalf("expected later steps to recover, got %q", draft)
	}
}

func TestRefineDraft_CancellationIsFatal(t *testing.T) {
	batches, segByID := refineInput()
	svc := newTestService(&fakeChatter{}, &fakeEmbedder{err: errors.New("down")}, &fakeSearcher{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := svc.refineDraft(ctx, testJob(), batches, segByID); err == nil {
		t.Fatalf("expected cancellation to abort the loop")
	}
}
