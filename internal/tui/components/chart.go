package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/memocal/internal/pipeline"
	"github.com/theirongolddev/memocal/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// CalendarCellWidth is the rendered width of one day cell.
const CalendarCellWidth = 4

var weekdayLabels = [7]string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}

// Sparkline renders a unicode sparkline from values.
func Sparkline(values []int, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := 0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	style := lipgloss.NewStyle().Foreground(color).Background(t.Surface)

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := min(max(v*(len(blocks)-1)/peak, 0), len(blocks)-1)
		buf.WriteRune(blocks[idx])
	}

	return style.Render(buf.String())
}

// CalendarGrid draws the month heat grid: a weekday header line followed
// by one line per week. cursor is the day under the keyboard cursor and
// selected is the day narrowed by a displayTime filter; either may be empty.
func CalendarGrid(weeks [][]string, counts map[string]int, cursor, selected string) string {
	t := theme.Active
	_, peak := pipeline.Peak(counts)

	headStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	blankStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	for _, d := range weekdayLabels {
		b.WriteString(headStyle.Render(fmt.Sprintf(" %s ", d)))
	}

	for _, week := range weeks {
		b.WriteString("\n")
		for _, day := range week {
			if day == "" {
				b.WriteString(blankStyle.Render(strings.Repeat(" ", CalendarCellWidth)))
				continue
			}
			b.WriteString(calendarCell(t, day, counts[day], peak, day == cursor, day == selected))
		}
	}
	return b.String()
}

func calendarCell(t theme.Theme, day string, n, peak int, cursor, selected bool) string {
	level := pipeline.HeatLevel(n, peak)
	style := lipgloss.NewStyle().
		Background(t.HeatColor(level)).
		Foreground(t.TextPrimary)
	if level == 0 {
		style = style.Foreground(t.TextDim)
	}

	num := strings.TrimPrefix(day[len(day)-2:], "0")
	cell := fmt.Sprintf(" %2s ", num)
	if selected {
		cell = fmt.Sprintf("[%2s]", num)
		style = style.Bold(true)
	}
	if cursor {
		style = style.Reverse(true)
	}
	return style.Render(cell)
}

// HeatLegend draws the shading scale.
func HeatLegend() string {
	t := theme.Active
	muted := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(muted.Render("less "))
	for level := 0; level <= pipeline.HeatLevels; level++ {
		b.WriteString(lipgloss.NewStyle().Background(t.HeatColor(level)).Render("  "))
	}
	b.WriteString(muted.Render(" more"))
	return b.String()
}
