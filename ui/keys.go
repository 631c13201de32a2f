package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Pause       key.Binding
	Next        key.Binding
	Previous    key.Binding
	Translation key.Binding
	Words       key.Binding
	Copy        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Pause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "pause/resume"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l", "n"),
			key.WithHelp("→/n", "next sentence"),
		),
		Previous: key.NewBinding(
			key.WithKeys("left", "h", "b"),
			key.WithHelp("←/b", "previous sentence"),
		),
		Translation: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "translation"),
		),
		Words: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "words"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy sentence"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Next, k.Previous, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Next, k.Previous},
		{k.Translation, k.Words, k.Copy},
		{k.Help, k.Quit},
	}
}
