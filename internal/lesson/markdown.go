package lesson

import (
	"fmt"
	"strings"
)

var difficultyLabel = map[int]string{1: "easy", 2: "medium", 3: "hard"}

// Markdown renders a human-readable summary of the lesson.
func (l *Lesson) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", l.Title)
	if l.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", l.Description)
	}
	fmt.Fprintf(&b, "_%s · %d sentences_\n\n", l.CreatedAt, len(l.Sentences))

	for _, s := range l.Sentences {
		fmt.Fprintf(&b, "## %d. %s\n\n", s.Index, s.English)
		if s.Korean != "" {
			fmt.Fprintf(&b, "> %s\n\n", s.Korean)
		}
		if len(s.Words) == 0 {
			continue
		}
		b.WriteString("| Term | Meaning | Level |\n|---|---|---|\n")
		for _, w := range s.Words {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", w.Term, w.Meaning, difficultyLabel[w.Difficulty])
		}
		b.WriteString("\n")
	}
	return b.String()
}
