package summary

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// protocolDoc is the JSON shape the model is asked to produce.
type protocolDoc struct {
	Sections    []sectionDoc    `json:"sections"`
	ActionItems []actionItemDoc `json:"action_items"`
}

type sectionDoc struct {
	Title       string   `json:"title"`
	Text        string   `json:"text"`
	StartTS     *float64 `json:"start_ts"`
	EndTS       *float64 `json:"end_ts"`
	EvidenceIDs []int64  `json:"evidence_ids"`
}

type actionItemDoc struct {
	Assignee  *string `json:"assignee"`
	DueDate   *string `json:"due_date"`
	Task      string  `json:"task"`
	Priority  *string `json:"priority"`
	SourceIDs []int64 `json:"source_ids"`
}

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	looseJSONRe  = regexp.MustCompile(`(?s)\{.*\}`)
)

// extractProtocol pulls a protocol document out of raw model output. The
// chain goes from strict to forgiving: direct parse, fenced code block,
// first balanced object, then a greedy regex.
func extractProtocol(raw string) (*protocolDoc, bool) {
	trimmed := strings.TrimSpace(raw)
	if doc, err := parseProtocol(trimmed); err == nil {
		return doc, true
	}
	if m := fencedJSONRe.FindStringSubmatch(trimmed); m != nil {
		if doc, err := parseProtocol(m[1]); err == nil {
			return doc, true
		}
	}
	if body, ok := balancedObject(trimmed); ok {
		if doc, err := parseProtocol(body); err == nil {
			return doc, true
		}
	}
	if m := looseJSONRe.FindString(trimmed); m != "" {
		if doc, err := parseProtocol(m); err == nil {
			return doc, true
		}
	}
	return nil, false
}

func parseProtocol(candidate string) (*protocolDoc, error) {
	var doc protocolDoc
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// balancedObject returns the first top-level {...} of s, honoring JSON
// string literals and escapes.
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// isMostlyCyrillic reports whether the text is plausibly Russian: enough
// cyrillic letters both in absolute count and as a share of all runes.
func isMostlyCyrillic(s string) bool {
	runes := []rune(s)
	cyr := 0
	for _, r := range runes {
		if unicode.Is(unicode.Cyrillic, r) {
			cyr++
		}
	}
	need := 8
	if n := int(0.3 * float64(len(runes))); n > need {
		need = n
	}
	return cyr >= need
}

// safeDate parses a YYYY-MM-DD due date; anything else becomes nil.
func safeDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	return &t
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}
