package viz

import (
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/powerchain/internal/config"
	"github.com/san-kum/powerchain/internal/powerchain"
)

var presetInfo = map[string]string{
	"reduction":   "two-stage gear reduction",
	"shaft-train": "gears joined by a layshaft",
	"worm-drive":  "left-handed worm reducer",
	"live-train":  "continuously driven train",
	"cycle":       "loop back into the motor",
	"dual-driver": "two motors, one gear",
}

const (
	stateMenu = iota
	stateSim
)

// App is the preset picker in front of the live view.
type App struct {
	state   int
	cursor  int
	presets []string
	logger  *slog.Logger
	err     error
	live    Model
}

func NewApp(logger *slog.Logger) App {
	return App{
		state:   stateMenu,
		presets: config.ListPresets(),
		logger:  logger,
	}
}

func (a App) Init() tea.Cmd { return nil }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.state == stateSim {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			a.state = stateMenu
			return a, nil
		}
		next, cmd := a.live.Update(msg)
		a.live = next.(Model)
		return a, cmd
	}

	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	switch k.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.presets)-1 {
			a.cursor++
		}
	case "enter", " ":
		return a.start(a.presets[a.cursor])
	}
	return a, nil
}

func (a App) start(name string) (App, tea.Cmd) {
	cfg := config.GetPreset(name)
	net, err := cfg.Build(powerchain.WithLogger(a.logger))
	if err != nil {
		a.err = err
		return a, nil
	}
	a.err = nil
	a.live = NewModel(net, name, cfg.Dt)
	a.state = stateSim
	return a, a.live.Init()
}

func (a App) View() string {
	if a.state == stateSim {
		return a.live.View()
	}

	var b strings.Builder
	h, sub := fg(CurrentTheme.Title).Bold(true), fg(CurrentTheme.Muted)
	b.WriteString("\n\n    " + h.Render("POWERCHAIN") + "\n    " + sub.Render("gear train simulator") + "\n    " + sub.Render("─────────────────────────") + "\n\n")
	for i, name := range a.presets {
		desc := presetInfo[name]
		if i == a.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n",
				fg(CurrentTheme.Selected).Bold(true).Render("▸"),
				lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Text).Render(fmt.Sprintf("%-14s", name)),
				fg(CurrentTheme.Selected).Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("      %s  %s\n", sub.Render(fmt.Sprintf("%-14s", name)), sub.Render(desc)))
		}
	}
	if a.err != nil {
		b.WriteString("\n    " + fg(CurrentTheme.Disabled).Render(a.err.Error()) + "\n")
	}
	b.WriteString("\n    " + sub.Render("j/k navigate  enter select  esc back  q quit") + "\n")
	return b.String()
}

func RunInteractive(logger *slog.Logger) error {
	_, err := tea.NewProgram(NewApp(logger), tea.WithAltScreen()).Run()
	return err
}
