package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines color scheme for the TUI
type Theme struct {
	Name     string
	Title    lipgloss.Color
	Text     lipgloss.Color
	Muted    lipgloss.Color
	Selected lipgloss.Color
	Motor    lipgloss.Color
	Gear     lipgloss.Color
	Worm     lipgloss.Color
	Shaft    lipgloss.Color
	Graph    lipgloss.Color
	Running  lipgloss.Color
	Paused   lipgloss.Color
	Disabled lipgloss.Color
}

var (
	ThemeWorkshop = Theme{
		Name:     "workshop",
		Title:    lipgloss.Color("#00cccc"),
		Text:     lipgloss.Color("#e0e0e0"),
		Muted:    lipgloss.Color("#666688"),
		Selected: lipgloss.Color("#ff88ff"),
		Motor:    lipgloss.Color("#ffcc00"),
		Gear:     lipgloss.Color("#00ccff"),
		Worm:     lipgloss.Color("#88ff88"),
		Shaft:    lipgloss.Color("#aaaaaa"),
		Graph:    lipgloss.Color("49"),
		Running:  lipgloss.Color("#00ff88"),
		Paused:   lipgloss.Color("#ffaa00"),
		Disabled: lipgloss.Color("#ff4444"),
	}

	ThemeRetroGreen = Theme{
		Name:     "retro",
		Title:    lipgloss.Color("#00ff00"), // Green phosphor
		Text:     lipgloss.Color("#00ff00"),
		Muted:    lipgloss.Color("#005500"),
		Selected: lipgloss.Color("#88ff88"),
		Motor:    lipgloss.Color("#ccff66"),
		Gear:     lipgloss.Color("#00cc00"),
		Worm:     lipgloss.Color("#66ff99"),
		Shaft:    lipgloss.Color("#008800"),
		Graph:    lipgloss.Color("#00ff00"),
		Running:  lipgloss.Color("#88ff88"),
		Paused:   lipgloss.Color("#ffff00"),
		Disabled: lipgloss.Color("#ff0000"),
	}

	ThemeBrass = Theme{
		Name:     "brass",
		Title:    lipgloss.Color("#d4a017"),
		Text:     lipgloss.Color("#fff5e0"),
		Muted:    lipgloss.Color("#8b6b4c"),
		Selected: lipgloss.Color("#ffd700"),
		Motor:    lipgloss.Color("#ff6b6b"),
		Gear:     lipgloss.Color("#b5a642"),
		Worm:     lipgloss.Color("#cd7f32"),
		Shaft:    lipgloss.Color("#a0a0a0"),
		Graph:    lipgloss.Color("#feca57"),
		Running:  lipgloss.Color("#5fd068"),
		Paused:   lipgloss.Color("#ffc048"),
		Disabled: lipgloss.Color("#ff4757"),
	}

	ThemeMinimal = Theme{
		Name:     "minimal",
		Title:    lipgloss.Color("#ffffff"),
		Text:     lipgloss.Color("#ffffff"),
		Muted:    lipgloss.Color("#888888"),
		Selected: lipgloss.Color("#0088ff"),
		Motor:    lipgloss.Color("#ffffff"),
		Gear:     lipgloss.Color("#cccccc"),
		Worm:     lipgloss.Color("#cccccc"),
		Shaft:    lipgloss.Color("#888888"),
		Graph:    lipgloss.Color("#ffffff"),
		Running:  lipgloss.Color("#00ff00"),
		Paused:   lipgloss.Color("#ffaa00"),
		Disabled: lipgloss.Color("#ff0000"),
	}

	// Default theme
	CurrentTheme = ThemeWorkshop

	Themes = []Theme{
		ThemeWorkshop,
		ThemeRetroGreen,
		ThemeBrass,
		ThemeMinimal,
	}
)

// GetTheme returns a theme by name, falling back to the default.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeWorkshop
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

// NextTheme switches to the theme after the current one.
func NextTheme() {
	for i, t := range Themes {
		if t.Name == CurrentTheme.Name {
			CurrentTheme = Themes[(i+1)%len(Themes)]
			return
		}
	}
	CurrentTheme = Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
