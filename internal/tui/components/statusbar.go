package components

import (
	"github.com/theirongolddev/memocal/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the bottom bar reports.
type StatusInfo struct {
	State       string // "filtered", "loading", "fallback: ..."
	DataAge     string
	Refreshing  bool
	AutoRefresh bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	base := lipgloss.NewStyle().Background(t.Surface)
	hintStyle := base.Foreground(t.TextMuted)
	keyStyle := base.Foreground(t.Accent).Bold(true)
	stateStyle := base.Foreground(t.TextPrimary)
	warnStyle := base.Foreground(t.Orange)

	left := base.Render(" ") +
		keyStyle.Render("?") + hintStyle.Render(" help  ") +
		keyStyle.Render("r") + hintStyle.Render(" refresh  ") +
		keyStyle.Render("q") + hintStyle.Render(" quit")

	right := ""
	if info.State != "" {
		style := stateStyle
		if len(info.State) >= 8 && info.State[:8] == "fallback" {
			style = warnStyle
		}
		right += style.Render(info.State) + base.Render("  ")
	}
	switch {
	case info.Refreshing:
		right += keyStyle.Render("↻ refreshing") + base.Render("  ")
	case info.AutoRefresh:
		right += hintStyle.Render("auto") + base.Render("  ")
	}
	if info.DataAge != "" {
		right += hintStyle.Render("updated "+info.DataAge) + base.Render(" ")
	}

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return left + base.Render(spaces(padding)) + right
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
