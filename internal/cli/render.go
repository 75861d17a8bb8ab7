package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/pipeline"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorBlue      = lipgloss.Color("#4385BE")
)

// HeatColors shade calendar cells from empty to the month's busiest day.
var HeatColors = [pipeline.HeatLevels + 1]lipgloss.Color{
	"#1C1B1A", "#1C3C2A", "#2B6A3F", "#66800B", "#A0AF54",
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	countStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBlue)

	pillStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(30).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table. The first column is left-aligned,
// the rest right-aligned.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = max(widths[i], lipgloss.Width(h))
	}
	for _, row := range t.Rows {
		for i := 0; i < numCols && i < len(row); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	rule := func(left, mid, right string) string {
		parts := make([]string, numCols)
		for i, w := range widths {
			parts[i] = strings.Repeat("─", w+2)
		}
		return dimStyle.Render(left+strings.Join(parts, mid)+right) + "\n"
	}
	line := func(cells []string, style lipgloss.Style, alignRest bool) string {
		var b strings.Builder
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i > 0 && alignRest {
				b.WriteString(style.Render(" " + pad + cell + " "))
			} else {
				b.WriteString(style.Render(" " + cell + pad + " "))
			}
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
		return b.String()
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	b.WriteString(rule("╭", "┬", "╮"))
	if len(t.Headers) > 0 {
		b.WriteString(line(t.Headers, headerStyle, false))
		b.WriteString(rule("├", "┼", "┤"))
	}
	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			b.WriteString(rule("├", "┼", "┤"))
			continue
		}
		b.WriteString(line(row, valueStyle, true))
	}
	b.WriteString(rule("╰", "┴", "╯"))

	return b.String()
}

// RenderMonth draws the month heat grid, one row per week. The selected
// day is bracketed.
func RenderMonth(weeks [][]string, counts map[string]int, selected string) string {
	_, peak := pipeline.Peak(counts)

	var b strings.Builder
	b.WriteString(" ")
	for d := 0; d < 7; d++ {
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" %s ", FormatDayOfWeek(d))))
	}
	b.WriteString("\n")

	for _, week := range weeks {
		b.WriteString(" ")
		for _, day := range week {
			if day == "" {
				b.WriteString("    ")
				continue
			}
			level := pipeline.HeatLevel(counts[day], peak)
			style := lipgloss.NewStyle().Background(HeatColors[level]).Foreground(ColorText)
			if level == 0 {
				style = style.Foreground(ColorTextDim)
			}
			num := strings.TrimPrefix(day[len(day)-2:], "0")
			cell := fmt.Sprintf(" %2s ", num)
			if day == selected {
				cell = fmt.Sprintf("[%2s]", num)
				style = style.Bold(true)
			}
			b.WriteString(style.Render(cell))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderLegend draws the heat scale.
func RenderLegend() string {
	var b strings.Builder
	b.WriteString(mutedStyle.Render(" less "))
	for _, c := range HeatColors {
		b.WriteString(lipgloss.NewStyle().Background(c).Render("  "))
	}
	b.WriteString(mutedStyle.Render(" more"))
	return b.String()
}

// RenderCounters draws the counter row. Pinned is omitted when zero.
func RenderCounters(c pipeline.Counters) string {
	var parts []string
	add := func(label, value string) {
		parts = append(parts, mutedStyle.Render(label+" ")+countStyle.Render(value))
	}
	if c.Pinned > 0 {
		add("Pinned", FormatCount(c.Pinned))
	}
	add("Links", FormatCount(c.Links))
	add("To-do", FormatTodo(c.Todo, c.TodoUndone))
	add("Code", FormatCount(c.Code))
	return " " + strings.Join(parts, dimStyle.Render("  │  "))
}

// RenderPills draws the active filters, or nothing when none are set.
func RenderPills(filters []filter.Filter) string {
	if len(filters) == 0 {
		return ""
	}
	pills := make([]string, len(filters))
	for i, f := range filters {
		pills[i] = pillStyle.Render("[" + f.Label() + "]")
	}
	return " " + mutedStyle.Render("Filters ") + strings.Join(pills, " ")
}

// RenderSparkline generates a unicode block sparkline from a series of values.
func RenderSparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := 0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak == 0 {
		peak = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := v * (len(blocks) - 1) / peak
		idx = min(max(idx, 0), len(blocks)-1)
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

// RenderHorizontalBar renders a labeled bar scaled against maxValue.
func RenderHorizontalBar(label string, value, maxValue, maxWidth int) string {
	if maxValue <= 0 || value <= 0 {
		return fmt.Sprintf("  %s", label)
	}
	barLen := value * maxWidth / maxValue
	return fmt.Sprintf("  %s %s %d", label, countStyle.Render(strings.Repeat("█", max(barLen, 1))), value)
}
