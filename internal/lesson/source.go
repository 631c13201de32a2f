package lesson

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrUnknownFormat is returned when no Source recognizes a document.
var ErrUnknownFormat = errors.New("unrecognized lesson format")

// InvalidFormatError reports a document that was recognized but could
// not be normalized.
type InvalidFormatError struct {
	Format string
	Err    error
}

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid %s lesson: %v", e.Format, e.Err)
}

func (e *InvalidFormatError) Unwrap() error {
	return e.Err
}

// Source normalizes one document format into a Lesson.
type Source interface {
	// Format names the document format, e.g. "json".
	Format() string
	// Detect reports whether data looks like this format.
	Detect(data []byte) bool
	// Parse normalizes data into a Lesson.
	Parse(data []byte) (*Lesson, error)
}

// Sources lists the known formats in sniffing order.
var Sources = []Source{JSONSource{}, XMLSource{}}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse sniffs data against Sources and normalizes it with the first match.
func Parse(data []byte) (*Lesson, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.TrimSpace(data)
	for _, src := range Sources {
		if !src.Detect(data) {
			continue
		}
		l, err := src.Parse(data)
		if err != nil {
			return nil, &InvalidFormatError{Format: src.Format(), Err: err}
		}
		return l, nil
	}
	return nil, &InvalidFormatError{Format: "unknown", Err: ErrUnknownFormat}
}

// normalize applies the fallbacks shared by every format and puts text in
// NFC form so that identical sentences fingerprint identically regardless
// of how the document was composed.
func normalize(l *Lesson) *Lesson {
	l.Title = clean(l.Title)
	l.Description = clean(l.Description)
	l.CreatedAt = strings.TrimSpace(l.CreatedAt)
	if l.Title == "" {
		l.Title = DefaultTitle
	}
	if l.CreatedAt == "" {
		l.CreatedAt = today()
	}
	for i := range l.Sentences {
		s := &l.Sentences[i]
		s.English = clean(s.English)
		s.Korean = clean(s.Korean)
		for j := range s.Words {
			w := &s.Words[j]
			w.Term = clean(w.Term)
			w.Meaning = clean(w.Meaning)
			if w.Difficulty < 1 || w.Difficulty > 3 {
				w.Difficulty = clampDifficulty(w.Difficulty)
			}
		}
	}
	return l
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// parseDifficulty maps easy/medium/hard or a number to 1..3, defaulting to 1.
func parseDifficulty(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "easy":
		return 1
	case "medium":
		return 2
	case "hard":
		return 3
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n == 0 {
		return 1
	}
	return n
}

func clampDifficulty(n int) int {
	if n < 1 {
		return 1
	}
	if n > 3 {
		return 3
	}
	return n
}
