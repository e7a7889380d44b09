package ui

// Config contains TUI-specific configuration.
type Config struct {
	// Theme preselects a theme by name and skips the picker.
	Theme string

	// Continuous starts rotating through the search-grounded themes.
	Continuous bool

	// InitialSpeed is the playback speed the session starts with.
	InitialSpeed float64

	// MaxWidth caps the rendered width; 0 means use the terminal width.
	MaxWidth int

	// ShowTranslations toggles the translation line under each sentence.
	ShowTranslations bool `env:"SHADOWBOX_SHOW_TRANSLATIONS" envDefault:"true"`

	// For debugging the UI.
	Debug bool `env:"SHADOWBOX_DEBUG"`
}
