package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/powerchain/internal/powerchain"
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(52)
	graphStyle  = lipgloss.NewStyle().Padding(1, 0)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

func titleStyle() lipgloss.Style { return fg(CurrentTheme.Title).Bold(true).MarginBottom(1) }

func helpStyle() lipgloss.Style { return fg(CurrentTheme.Muted).MarginTop(1) }

// kindColor is the theme color for a part.
func kindColor(n *powerchain.Node) lipgloss.Color {
	switch {
	case !n.Enabled():
		return CurrentTheme.Disabled
	case n.IsMotor():
		return CurrentTheme.Motor
	case n.Kind() == powerchain.KindGear:
		return CurrentTheme.Gear
	case n.Kind() == powerchain.KindWormGear:
		return CurrentTheme.Worm
	default:
		return CurrentTheme.Shaft
	}
}

// StatusBadge renders a part's state as a short colored word.
func StatusBadge(n *powerchain.Node) string {
	switch {
	case !n.Enabled():
		return fg(CurrentTheme.Disabled).Bold(true).Render("DISABLED")
	case n.Live():
		return fg(CurrentTheme.Running).Render("live")
	default:
		return fg(CurrentTheme.Muted).Render("idle")
	}
}

// SpeedBar renders |rpm| against max as a bar of the given width.
func SpeedBar(rpm, max float64, width int) string {
	if max <= 0 {
		max = 1
	}
	ratio := rpm / max
	if ratio < 0 {
		ratio = -ratio
	}
	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	dir := "⟳"
	if rpm < 0 {
		dir = "⟲"
	} else if rpm == 0 {
		dir = " "
	}
	return fmt.Sprintf("%s %s", bar, dir)
}

// Separator draws a muted rule with a centre mark.
func Separator(width int) string {
	if width < 8 {
		return strings.Repeat("─", width)
	}
	mid := width / 2
	left := strings.Repeat("─", mid-3)
	right := strings.Repeat("─", width-mid-3)
	return fg(CurrentTheme.Muted).Render(left + " ◆ " + right)
}
