package summary

import (
	"context"
	"strings"
	"testing"

	"github.com/protokol-team/protokol/internal/adapter/repository"
	"github.com/protokol-team/protokol/internal/domain/entities"
)

func TestRetrieve_FiltersByScoreThreshold(t *testing.T) {
	segByID := map[int64]entities.Segment{
		1: seg(1, "alice", 0, 1, "one"),
		2: seg(2, "bob", 1, 2, "two"),
		3: seg(3, "alice", 2, 3, "three"),
	}
	svc := newTestService(nil, &fakeEmbedder{vec: []float32{1}}, &fakeSearcher{
		hits: []repository.SimilarSegment{
			{SegmentID: 1, Score: 0.9},
			{SegmentID: 2, Score: 0.2},
			{SegmentID: 3, Score: 0.5},
		},
	}, nil, nil)

	got := svc.retrieve(context.Background(), testJob().ID, []float32{1}, segByID)
	if len(got) != 2 {
		t.Fatalf("expected 2 refs above threshold, got %d", len(got))
	}
	if got[0].seg.ID != 1 || got[1].seg.ID != 3 {
		t.Fatalf("unexpected refs: %+v", got)
	}
}

func TestRetrieve_NilVectorMeansNoRefs(t *testing.T) {
	svc := newTestService(nil, nil, &fakeSearcher{}, nil, nil)
	if got := svc.retrieve(context.Background(), testJob().ID, nil, nil); got != nil {
		t.Fatalf("expected nil refs for nil vector, got %+v", got)
	}
}

func TestRenderRefs_CapWithEllipsis(t *testing.T) {
	refs := []scoredSegment{
		{seg: seg(1, "alice", 0, 1, strings.Repeat("a", 50)), score: 0.9},
		{seg: seg(2, "bob", 1, 2, strings.Repeat("b", 50)), score: 0.8},
	}

	full := renderRefs(refs, 10000)
	if !strings.Contains(full, "[REF id=1 score=0.90 alice 0.00-1.00]") {
		t.Fatalf("unexpected ref rendering: %q", full)
	}
	if strings.Contains(full, "…") {
		t.Fatalf("uncapped rendering must not contain ellipsis")
	}

	capped := renderRefs(refs, 90)
	if !strings.HasSuffix(capped, "…") {
		t.Fatalf("capped rendering must end with ellipsis: %q", capped)
	}
	if strings.Contains(capped, "id=2") {
		t.Fatalf("second ref should have been cut: %q", capped)
	}
}

func TestRefCollector_KeepsMaxScore(t *testing.T) {
	c := newRefCollector()
	c.add([]scoredSegment{{seg: seg(1, "a", 0, 1, "x"), score: 0.4}})
	c.add([]scoredSegment{{seg: seg(1, "a", 0, 1, "x"), score: 0.7}})
	c.add([]scoredSegment{{seg: seg(1, "a", 0, 1, "x"), score: 0.5}})

	if len(c.best) != 1 {
		t.Fatalf("expected dedupe to a single ref, got %d", len(c.best))
	}
	if c.best[1].score != 0.7 {
		t.Fatalf("expected max score 0.7, got %f", c.best[1].score)
	}
}

func TestGlobalRefs_BucketsAndTimeOrder(t *testing.T) {
	c := newRefCollector()
	// Two crowded buckets: only the top 2 per bucket survive, output in
	// time order regardless of score.
	c.add([]scoredSegment{
		{seg: seg(1, "a", 0, 1, "early-low"), score: 0.4},
		{seg: seg(2, "a", 1, 2, "early-mid"), score: 0.6},
		{seg: seg(3, "a", 2, 3, "early-high"), score: 0.9},
		{seg: seg(4, "b", 90, 91, "late-high"), score: 0.8},
		{seg: seg(5, "b", 91, 92, "late-low"), score: 0.5},
		{seg: seg(6, "b", 92, 100, "late-mid"), score: 0.7},
	})

	out := c.globalRefs(10, 2, 10000)
	for _, dropped := range []string{"early-low", "late-low"} {
		if strings.Contains(out, dropped) {
			t.Fatalf("expected %q to be dropped: %q", dropped, out)
		}
	}
	for _, kept := range []string{"early-mid", "early-high", "late-high", "late-mid"} {
		if !strings.Contains(out, kept) {
			t.Fatalf("expected %q to be kept: %q", kept, out)
		}
	}
	if strings.Index(out, "early-mid") > strings.Index(out, "late-high") {
		t.Fatalf("refs must be in time order: %q", out)
	}
}

func TestGlobalRefs_TieBrokenBySmallerID(t *testing.T) {
	c := newRefCollector()
	c.add([]scoredSegment{
		{seg: seg(3, "a", 0, 1, "id-three"), score: 0.5},
		{seg: seg(1, "a", 1, 2, "id-one"), score: 0.5},
		{seg: seg(2, "a", 2, 3, "id-two"), score: 0.5},
	})

	out := c.globalRefs(1, 2, 10000)
	if strings.Contains(out, "id-three") {
		t.Fatalf("tie must prefer smaller ids: %q", out)
	}
	if !strings.Contains(out, "id-one") || !strings.Contains(out, "id-two") {
		t.Fatalf("expected ids 1 and 2 to win the tie: %q", out)
	}
}

func TestGlobalRefs_Empty(t *testing.T) {
	if out := newRefCollector().globalRefs(10, 2, 100); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}
