package lesson

import (
	"encoding/json"
	"time"
)

// DefaultStability is used for sentences that carry no stability override.
const DefaultStability = 0.5

// DefaultTitle names lessons whose document has no title.
const DefaultTitle = "Untitled Session"

// Word is an annotated vocabulary item. It is carried through to the UI
// and never affects synthesis.
type Word struct {
	Term       string
	Meaning    string
	Difficulty int // 1 (easy) to 3 (hard)
}

// Sentence is one practice line of a lesson.
type Sentence struct {
	Index     int
	English   string
	Korean    string
	Words     []Word
	Stability *float64
}

// EffectiveStability returns the sentence override or DefaultStability.
func (s Sentence) EffectiveStability() float64 {
	if s.Stability == nil {
		return DefaultStability
	}
	return *s.Stability
}

// Lesson is the normalized structure every document format converges to.
// It is treated as immutable once loaded.
type Lesson struct {
	Title       string
	Description string
	CreatedAt   string
	Sentences   []Sentence
}

// Len returns the number of sentences.
func (l *Lesson) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Sentences)
}

// Encode renders the lesson in the canonical JSON document format. The
// output parses back to an equal Lesson.
func (l *Lesson) Encode() ([]byte, error) {
	doc := jsonDocument{
		Title:       l.Title,
		Description: l.Description,
		CreatedAt:   l.CreatedAt,
		Sentences:   make([]jsonSentence, 0, len(l.Sentences)),
	}
	for _, s := range l.Sentences {
		js := jsonSentence{
			Index:     s.Index,
			English:   s.English,
			Korean:    s.Korean,
			Stability: s.Stability,
			Words:     make([]jsonWord, 0, len(s.Words)),
		}
		for _, w := range s.Words {
			raw, _ := json.Marshal(w.Difficulty)
			js.Words = append(js.Words, jsonWord{Term: w.Term, Meaning: w.Meaning, Difficulty: raw})
		}
		doc.Sentences = append(doc.Sentences, js)
	}
	return json.MarshalIndent(doc, "", "  ")
}

func today() string {
	return time.Now().Format(time.DateOnly)
}
