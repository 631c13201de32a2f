package lesson

import (
	"encoding/json"
)

// JSONSource parses the JSON lesson document.
type JSONSource struct{}

type jsonInfo struct {
	Title       string `json:"Title"`
	Description string `json:"Description"`
	CreatedAt   string `json:"CreatedAt"`
}

type jsonDocument struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	CreatedAt   string         `json:"createdAt,omitempty"`
	SessionInfo *jsonInfo      `json:"SessionInfo,omitempty"`
	Sentences   []jsonSentence `json:"sentences"`
}

type jsonSentence struct {
	Index     int        `json:"index"`
	English   string     `json:"english"`
	Korean    string     `json:"korean"`
	Words     []jsonWord `json:"words"`
	Stability *float64   `json:"stability,omitempty"`
}

type jsonWord struct {
	Term       string          `json:"term"`
	Meaning    string          `json:"meaning"`
	Difficulty json.RawMessage `json:"difficulty,omitempty"`
}

func (JSONSource) Format() string { return "json" }

func (JSONSource) Detect(data []byte) bool {
	return len(data) > 0 && data[0] == '{'
}

func (JSONSource) Parse(data []byte) (*Lesson, error) {
	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	l := &Lesson{
		Title:       doc.Title,
		Description: doc.Description,
		CreatedAt:   doc.CreatedAt,
		Sentences:   make([]Sentence, 0, len(doc.Sentences)),
	}
	if info := doc.SessionInfo; info != nil {
		if l.Title == "" {
			l.Title = info.Title
		}
		if l.Description == "" {
			l.Description = info.Description
		}
		if l.CreatedAt == "" {
			l.CreatedAt = info.CreatedAt
		}
	}

	for i, js := range doc.Sentences {
		s := Sentence{
			Index:     js.Index,
			English:   js.English,
			Korean:    js.Korean,
			Stability: js.Stability,
			Words:     make([]Word, 0, len(js.Words)),
		}
		// A zero index means "unset" in this format.
		if s.Index == 0 {
			s.Index = i + 1
		}
		for _, jw := range js.Words {
			s.Words = append(s.Words, Word{
				Term:       jw.Term,
				Meaning:    jw.Meaning,
				Difficulty: jsonDifficulty(jw.Difficulty),
			})
		}
		l.Sentences = append(l.Sentences, s)
	}

	return normalize(l), nil
}

// jsonDifficulty accepts either a number or a difficulty word.
func jsonDifficulty(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 1
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseDifficulty(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && f != 0 {
		return int(f)
	}
	return 1
}
