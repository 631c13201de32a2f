package ui

// Config contains TUI-specific configuration.
type Config struct {
	EnableMouse bool
	// MaxWidth caps the sentence column. Zero means the terminal width.
	MaxWidth int `env:"SHADOW_MAX_WIDTH" envDefault:"100"`

	// Initial display toggles. Each voice may override them while it plays.
	ShowTranslation bool `env:"SHADOW_SHOW_TRANSLATION" envDefault:"true"`
	ShowWords       bool `env:"SHADOW_SHOW_WORDS"       envDefault:"true"`

	// Automation quits the program as soon as the session ends.
	Automation bool

	// For debugging the UI
	ShowPhase bool `env:"SHADOW_SHOW_PHASE"`
}
