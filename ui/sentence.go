package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/dgnsrekt/shadow/internal/lesson"
)

// renderSentence renders a practice sentence wrapped to width, optionally
// followed by its translation and annotated words.
func renderSentence(s lesson.Sentence, width int, showTranslation, showWords bool) string {
	if width < 20 {
		width = 20
	}

	var b strings.Builder
	b.WriteString(sentenceStyle.Render(wordwrap.String(s.English, width)))

	if showTranslation && s.Korean != "" {
		b.WriteString("\n\n")
		b.WriteString(translationStyle.Render(wordwrap.String(s.Korean, width)))
	}

	if showWords && len(s.Words) > 0 {
		b.WriteString("\n\n")
		b.WriteString(renderWords(s.Words, width))
	}
	return b.String()
}

// renderWords lays the words out as an aligned two-column list.
func renderWords(words []lesson.Word, width int) string {
	col := 0
	for _, w := range words {
		if n := runewidth.StringWidth(w.Term); n > col {
			col = n
		}
	}
	if limit := width / 2; col > limit {
		col = limit
	}

	styles := difficultyStyles()
	lines := make([]string, 0, len(words))
	for _, w := range words {
		term := runewidth.FillRight(runewidth.Truncate(w.Term, col, ellipsis), col)
		marker := styles[difficultyIndex(w.Difficulty)].Render("●")
		meaning := runewidth.Truncate(w.Meaning, width-col-4, ellipsis)
		lines = append(lines, marker+" "+termStyle.Render(term)+"  "+meaning)
	}
	return strings.Join(lines, "\n")
}

func difficultyIndex(d int) int {
	switch {
	case d <= 1:
		return 0
	case d == 2:
		return 1
	default:
		return 2
	}
}

// clipboardText is what the copy key puts on the clipboard.
func clipboardText(s lesson.Sentence) string {
	if s.Korean == "" {
		return s.English
	}
	return s.English + "\n" + s.Korean
}
