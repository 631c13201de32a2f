package ui

import (
	"github.com/charmbracelet/lipgloss"
	te "github.com/muesli/termenv"
)

const ellipsis = "…"

var (
	grayStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8800"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#5A56E0")).Padding(0, 1)

	sentenceStyle    = lipgloss.NewStyle().Bold(true)
	translationStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})
	termStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
)

// difficultyStyles maps word difficulty 1..3 to a color. The palette
// follows the terminal background.
func difficultyStyles() [3]lipgloss.Style {
	if te.HasDarkBackground() {
		return [3]lipgloss.Style{
			lipgloss.NewStyle().Foreground(lipgloss.Color("#7CFC00")),
			lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")),
			lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6347")),
		}
	}
	return [3]lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("#2E8B57")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#B8860B")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#B22222")),
	}
}
