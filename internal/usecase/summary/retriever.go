package summary

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/protokol-team/protokol/internal/adapter/repository"
	"github.com/protokol-team/protokol/internal/domain/entities"
)

// Embedder produces query vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SimilaritySearcher is the similarity query surface of the embedding
// repository.
type SimilaritySearcher interface {
	TopKSimilar(ctx context.Context, jobID uuid.UUID, vec []float32, k int) ([]repository.SimilarSegment, error)
}

type scoredSegment struct {
	seg   entities.Segment
	score float64
}

// embedQuery returns nil when the embedding service fails. Retrieval
// enriches the prompts, it is never a reason to fail the run.
func (s *Service) embedQuery(ctx context.Context, text string) []float32 {
	vec, err := s.embed.Embed(ctx, truncateHead(text, s.cfg.EmbedWindowChars))
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("query embedding failed, continuing without references", zap.Error(err))
		}
		return nil
	}
	return vec
}

// retrieve maps a query vector to the job's most similar segments above
// the score threshold.
func (s *Service) retrieve(ctx context.Context, jobID uuid.UUID, vec []float32, segByID map[int64]entities.Segment) []scoredSegment {
	if vec == nil {
		return nil
	}
	hits, err := s.search.TopKSimilar(ctx, jobID, vec, s.cfg.TopK)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("similarity search failed, continuing without references", zap.Error(err))
		}
		return nil
	}

	out := make([]scoredSegment, 0, len(hits))
	for _, h := range hits {
		if h.Score < s.cfg.MinScore {
			continue
		}
		seg, ok := segByID[h.SegmentID]
		if !ok {
			continue
		}
		out = append(out, scoredSegment{seg: seg, score: h.Score})
	}
	return out
}

// renderRefs renders reference lines under a hard char cap. A reference
// that would cross the cap is replaced by an ellipsis and rendering stops.
func renderRefs(refs []scoredSegment, maxChars int) string {
	var b strings.Builder
	total := 0
	for _, r := range refs {
		line := fmt.Sprintf("[REF id=%d score=%.2f %s %.2f-%.2f] %s",
			r.seg.ID, r.score, r.seg.Speaker, r.seg.StartTS, r.seg.EndTS, r.seg.Text)
		n := len([]rune(line))
		if total+n+1 > maxChars {
			b.WriteString("…")
			break
		}
		if total > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
		total += n + 1
	}
	return b.String()
}

// refCollector keeps the best score seen per segment across all batch
// retrievals of a run.
type refCollector struct {
	best map[int64]scoredSegment
}

func newRefCollector() *refCollector {
	return &refCollector{best: make(map[int64]scoredSegment)}
}

func (c *refCollector) add(refs []scoredSegment) {
	for _, r := range refs {
		if cur, ok := c.best[r.seg.ID]; !ok || r.score > cur.score {
			c.best[r.seg.ID] = r
		}
	}
}

// globalRefs spreads the collected evidence across the meeting timeline:
// equal time buckets over the covered range, the top scored references of
// each bucket (ties broken by the smaller id), reassembled in time order.
func (c *refCollector) globalRefs(buckets, perBucket, maxChars int) string {
	if len(c.best) == 0 {
		return ""
	}

	all := make([]scoredSegment, 0, len(c.best))
	minStart := math.Inf(1)
	maxEnd := math.Inf(-1)
	for _, r := range c.best {
		all = append(all, r)
		minStart = math.Min(minStart, r.seg.StartTS)
		maxEnd = math.Max(maxEnd, r.seg.EndTS)
	}

	span := maxEnd - minStart
	grouped := make([][]scoredSegment, buckets)
	for _, r := range all {
		idx := 0
		if span > 0 {
			idx = int(float64(buckets) * (r.seg.StartTS - minStart) / span)
		}
		if idx >= buckets {
			idx = buckets - 1
		}
		grouped[idx] = append(grouped[idx], r)
	}

	var picked []scoredSegment
	for _, g := range grouped {
		sort.Slice(g, func(i, j int) bool {
			if g[i].score != g[j].score {
				return g[i].score > g[j].score
			}
			return g[i].seg.ID < g[j].seg.ID
		})
		if len(g) > perBucket {
			g = g[:perBucket]
		}
		picked = append(picked, g...)
	}

	sort.Slice(picked, func(i, j int) bool {
		if picked[i].seg.StartTS != picked[j].seg.StartTS {
			return picked[i].seg.StartTS < picked[j].seg.StartTS
		}
		return picked[i].seg.ID < picked[j].seg.ID
	})
	return renderRefs(picked, maxChars)
}
