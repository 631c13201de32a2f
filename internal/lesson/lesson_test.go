package lesson

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleJSON = `{
  "SessionInfo": {"Title": "Cafe Talk", "Description": "Ordering coffee", "CreatedAt": "2024-05-01"},
  "sentences": [
    {"english": "  Can I get a latte? ", "korean": "라떼 주세요", "words": [
      {"term": "latte", "meaning": "라떼", "difficulty": "easy"},
      {"term": "get", "meaning": "받다", "difficulty": "hard"},
      {"term": "can", "meaning": "할 수 있다", "difficulty": 2}
    ]},
    {"index": 7, "english": "To go, please.", "korean": "포장이요", "stability": 0.3}
  ]
}`

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<ShadowingSession>
  <SessionInfo>
    <Title>Airport</Title>
    <Description>Check-in phrases</Description>
  </SessionInfo>
  <Sentences>
    <Sentence>
      <Index>3</Index>
      <English> Where is gate five? </English>
      <Korean>5번 게이트가 어디예요?</Korean>
      <Words>
        <Word><Term>gate</Term><Meaning>탑승구</Meaning><Difficulty>medium</Difficulty></Word>
        <Word term="where" meaning="어디" difficulty="1"/>
      </Words>
    </Sentence>
    <Sentence index="4" english="Window seat, please." korean="창가 자리 주세요"/>
  </Sentences>
</ShadowingSession>`

const legacyXML = `<shadowing>
  <Meta><title>Old Format</title></Meta>
  <sentence><english>Hi.</english><korean>안녕.</korean></sentence>
</shadowing>`

func TestParseJSON(t *testing.T) {
	l, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if l.Title != "Cafe Talk" || l.Description != "Ordering coffee" || l.CreatedAt != "2024-05-01" {
		t.Errorf("unexpected header: %+v", l)
	}
	if len(l.Sentences) != 2 {
		t.Fatalf("got %d sentences, want 2", len(l.Sentences))
	}

	first := l.Sentences[0]
	if first.Index != 1 {
		t.Errorf("missing index should default to position+1, got %d", first.Index)
	}
	if first.English != "Can I get a latte?" {
		t.Errorf("english not trimmed: %q", first.English)
	}
	if got := first.EffectiveStability(); got != DefaultStability {
		t.Errorf("stability: got %v, want %v", got, DefaultStability)
	}

	wantDifficulty := []int{1, 3, 2}
	for i, w := range first.Words {
		if w.Difficulty != wantDifficulty[i] {
			t.Errorf("word %q difficulty: got %d, want %d", w.Term, w.Difficulty, wantDifficulty[i])
		}
	}

	second := l.Sentences[1]
	if second.Index != 7 {
		t.Errorf("explicit index: got %d, want 7", second.Index)
	}
	if got := second.EffectiveStability(); got != 0.3 {
		t.Errorf("stability override: got %v, want 0.3", got)
	}
}

func TestParseJSONDefaults(t *testing.T) {
	l, err := Parse([]byte(`{"sentences": []}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if l.Title != DefaultTitle {
		t.Errorf("title: got %q, want %q", l.Title, DefaultTitle)
	}
	if l.CreatedAt == "" {
		t.Error("createdAt should default to today")
	}
	if l.Len() != 0 {
		t.Errorf("got %d sentences, want 0", l.Len())
	}
}

func TestParseXML(t *testing.T) {
	l, err := Parse([]byte(sampleXML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if l.Title != "Airport" || l.Description != "Check-in phrases" {
		t.Errorf("unexpected header: %+v", l)
	}
	if len(l.Sentences) != 2 {
		t.Fatalf("got %d sentences, want 2", len(l.Sentences))
	}

	s := l.Sentences[0]
	if s.Index != 3 || s.English != "Where is gate five?" {
		t.Errorf("unexpected first sentence: %+v", s)
	}
	if len(s.Words) != 2 {
		t.Fatalf("got %d words, want 2", len(s.Words))
	}
	if s.Words[0].Difficulty != 2 || s.Words[1].Term != "where" {
		t.Errorf("unexpected words: %+v", s.Words)
	}

	attr := l.Sentences[1]
	if attr.Index != 4 || attr.English != "Window seat, please." || attr.Korean != "창가 자리 주세요" {
		t.Errorf("attribute sentence not parsed: %+v", attr)
	}
}

func TestParseLegacyXML(t *testing.T) {
	l, err := Parse([]byte(legacyXML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if l.Title != "Old Format" {
		t.Errorf("title: got %q", l.Title)
	}
	if len(l.Sentences) != 1 || l.Sentences[0].Index != 1 {
		t.Errorf("unexpected sentences: %+v", l.Sentences)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format string
	}{
		{"plain text", "hello", "unknown"},
		{"broken json", `{"sentences": [`, "json"},
		{"broken xml", `<ShadowingSession><Sentence>`, "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			var fe *InvalidFormatError
			if !errors.As(err, &fe) {
				t.Fatalf("expected InvalidFormatError, got %v", err)
			}
			if fe.Format != tt.format {
				t.Errorf("format: got %q, want %q", fe.Format, tt.format)
			}
		})
	}
}

func TestParseNormalizesToNFC(t *testing.T) {
	// "é" written as e + combining acute accent.
	l, err := Parse([]byte("{\"sentences\": [{\"english\": \"cafe\u0301\"}]}"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := l.Sentences[0].English; got != "caf\u00e9" {
		t.Errorf("got %q, want composed form", got)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	l, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	data, err := l.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	again, err := Parse(data)
	if err != nil {
		t.Fatalf("re-Parse failed: %v", err)
	}
	if again.Title != l.Title || len(again.Sentences) != len(l.Sentences) {
		t.Fatalf("round trip mismatch: %+v", again)
	}
	if again.Sentences[1].EffectiveStability() != 0.3 {
		t.Error("stability lost in round trip")
	}
	if again.Sentences[0].Words[1].Difficulty != 3 {
		t.Error("difficulty lost in round trip")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cafe.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o600); err != nil {
		t.Fatal(err)
	}
	l, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if l.Title != "Cafe Talk" {
		t.Errorf("title: got %q", l.Title)
	}
}

func TestBuildIndexAndFilter(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"cafe.json":    `{"title": "Cafe Talk", "sentences": []}`,
		"airport.xml":  sampleXML,
		"untitled.xml": `<shadowing/>`,
		"notes.txt":    "ignored",
		IndexFile:      "[]",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := BuildIndex(dir)
	if err != nil {
		t.Fatalf("BuildIndex failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(entries), entries)
	}
	if entries[0].ID != "airport" || entries[0].Name != "Airport" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[2].Name != "untitled" {
		t.Errorf("title should fall back to file name, got %q", entries[2].Name)
	}

	filtered := Filter(entries, "cafe")
	if len(filtered) == 0 || filtered[0].ID != "cafe" {
		t.Errorf("fuzzy filter: got %+v", filtered)
	}

	path, err := WriteIndex(dir, entries)
	if err != nil {
		t.Fatalf("WriteIndex failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"name": "Cafe Talk"`) {
		t.Errorf("index missing entry: %s", data)
	}
}

func TestMarkdownSummary(t *testing.T) {
	l, _ := Parse([]byte(sampleJSON))
	md := l.Markdown()
	for _, want := range []string{"# Cafe Talk", "## 7. To go, please.", "| latte | 라떼 | easy |"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}
