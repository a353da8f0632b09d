package summary

import (
	"testing"
)

func TestExtractProtocol_Direct(t *testing.T) {
	raw := `{"sections":[{"title":"Итоги","text":"Обсудили релиз","evidence_ids":[1,2]}],"action_items":[]}`
	doc, ok := extractProtocol(raw)
	if !ok {
		t.Fatalf("expected direct parse to succeed")
	}
	if len(doc.Sections) != 1 || doc.Sections[0].Title != "Итоги" {
		t.Fatalf("unexpected sections: %+v", doc.Sections)
	}
}

func TestExtractProtocol_FencedBlock(t *testing.T) {
	raw := "Вот протокол:\n```json\n{\"sections\":[{\"title\":\"A\",\"text\":\"B\"}],\"action_items\":[]}\n```\nГотово."
	doc, ok := extractProtocol(raw)
	if !ok {
		t.Fatalf("expected fenced block parse to succeed")
	}
	if doc.Sections[0].Title != "A" {
		t.Fatalf("unexpected title %q", doc.Sections[0].Title)
	}
}

func TestExtractProtocol_BalancedObjectInProse(t *testing.T) {
	raw := `Ответ модели {"sections":[{"title":"Скобки {и} кавычки \"}\"","text":"x"}],"action_items":[]} и хвост`
	doc, ok := extractProtocol(raw)
	if !ok {
		t.Fatalf("expected balanced-object parse to succeed")
	}
	if doc.Sections[0].Text != "x" {
		t.Fatalf("unexpected text %q", doc.Sections[0].Text)
	}
}

func TestExtractProtocol_Garbage(t *testing.T) {
	if _, ok := extractProtocol("никакого json здесь нет"); ok {
		t.Fatalf("expected extraction to fail on prose")
	}
}

func TestBalancedObject_UnclosedBrace(t *testing.T) {
	if _, ok := balancedObject(`{"a": "b"`); ok {
		t.Fatalf("expected unclosed object to fail")
	}
}

func TestIsMostlyCyrillic(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Подготовить отчёт по релизу", true},
		{"Prepare the release report", false},
		{"Проверить API endpoints", true},
		{"Да", false},
	}
	for _, tc := range cases {
		if got := isMostlyCyrillic(tc.text); got != tc.want {
			t.Fatalf("isMostlyCyrillic(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestSafeDate(t *testing.T) {
	good := "2026-09-15"
	if d := safeDate(&good); d == nil || d.Format("2006-01-02") != good {
		t.Fatalf("expected %s, got %v", good, d)
	}

	for _, bad := range []string{"", "null", "次週", "15.09.2026"} {
		v := bad
		if d := safeDate(&v); d != nil {
			t.Fatalf("expected nil for %q, got %v", bad, d)
		}
	}
	if d := safeDate(nil); d != nil {
		t.Fatalf("expected nil for nil input")
	}
}
