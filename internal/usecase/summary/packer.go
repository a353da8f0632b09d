package summary

import (
	"fmt"
	"strings"

	"github.com/protokol-team/protokol/internal/domain/entities"
)

// SplitIntoBatches groups segments, in order, into char-bounded batches.
// A segment is never split across batches; a batch exceeds the limit only
// when it holds a single segment that would not fit anywhere.
func SplitIntoBatches(segments []entities.Segment, limitChars int) [][]entities.Segment {
	var batches [][]entities.Segment
	var current []entities.Segment
	size := 0

	for _, seg := range segments {
		n := len([]rune(renderUnit(seg)))
		if len(current) > 0 && size+n+1 > limitChars {
			batches = append(batches, current)
			current = nil
			size = 0
		}
		current = append(current, seg)
		size += n + 1
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// PackContext renders one batch as newline-joined transcript lines.
func PackContext(batch []entities.Segment) string {
	lines := make([]string, 0, len(batch))
	for _, seg := range batch {
		lines = append(lines, renderUnit(seg))
	}
	return strings.Join(lines, "\n")
}

func renderUnit(seg entities.Segment) string {
	return fmt.Sprintf("[%s %.2f-%.2f] %s", seg.Speaker, seg.StartTS, seg.EndTS, seg.Text)
}

// truncateHead keeps the first max runes of s.
func truncateHead(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// tailClip keeps the last max runes of s. The newest part of a draft is
// the most relevant one, so clipping drops the head.
func tailClip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[len(runes)-max:])
}
