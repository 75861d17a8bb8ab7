package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/memocal/internal/cli"
	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/pipeline"
	"github.com/theirongolddev/memocal/internal/tui/components"
	"github.com/theirongolddev/memocal/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Calendar card geometry, relative to the top-left of the content area.
const (
	calendarTop       = components.CardHeight // below the counter row
	calendarFirstWeek = calendarTop + 3       // border, title, weekday header
	calendarInset     = 2                     // border + padding
	calendarCardWidth = 7*components.CalendarCellWidth + 2*calendarInset
	topTagCount       = 6
)

// counter is one clickable card of the counter row.
type counter struct {
	label  string
	value  string
	factor filter.Factor
}

// counters lists the visible counter cards. Pinned is hidden when zero.
func (a App) counters() []counter {
	c := a.snapshot.Counters()
	var out []counter
	if c.Pinned > 0 {
		out = append(out, counter{"Pinned", cli.FormatCount(c.Pinned), filter.Pinned})
	}
	return append(out,
		counter{"Links", cli.FormatCount(c.Links), filter.HasLink},
		counter{"To-do", cli.FormatTodo(c.Todo, c.TodoUndone), filter.HasTaskList},
		counter{"Code", cli.FormatCount(c.Code), filter.HasCode},
	)
}

// counterKeys maps the number keys to counter filters.
var counterKeys = map[string]filter.Factor{
	"1": filter.Pinned,
	"2": filter.HasLink,
	"3": filter.HasTaskList,
	"4": filter.HasCode,
}

func (a *App) calendarKey(key string) (tea.Cmd, bool) {
	switch key {
	case "h", "left":
		return a.moveCursor(-1), true
	case "l", "right":
		return a.moveCursor(1), true
	case "k", "up":
		return a.moveCursor(-7), true
	case "j", "down":
		return a.moveCursor(7), true
	case "[":
		return a.shiftMonth(-1), true
	case "]":
		return a.shiftMonth(1), true
	case "t":
		return a.goToday(time.Now().In(a.cfg.Location())), true
	case "enter", " ":
		filter.SelectDay(a.filters, a.cursor)
		return nil, true
	case "esc":
		filter.ClearDay(a.filters)
		return nil, true
	case "x":
		a.filters.Clear()
		return nil, true
	}
	if f, ok := counterKeys[key]; ok {
		filter.Toggle(a.filters, f, "")
		return nil, true
	}
	return nil, false
}

// moveCursor moves the day cursor, following it into the next or previous
// month when it leaves the visible one.
func (a *App) moveCursor(days int) tea.Cmd {
	cur, err := time.Parse(pipeline.DayLayout, a.cursor)
	if err != nil {
		a.cursor = defaultCursor(a.month, time.Now().In(a.cfg.Location()))
		return nil
	}
	next := cur.AddDate(0, 0, days)
	a.cursor = next.Format(pipeline.DayLayout)
	if m := next.Format(pipeline.MonthLayout); m != a.month {
		a.month = m
		return a.retrigger()
	}
	return nil
}

// shiftMonth changes the visible month, keeping the cursor on the same
// day of month where it exists.
func (a *App) shiftMonth(n int) tea.Cmd {
	m, err := pipeline.ShiftMonth(a.month, n)
	if err != nil {
		return nil
	}
	days, err := pipeline.MonthDays(m)
	if err != nil || len(days) == 0 {
		return nil
	}

	dom := 1
	if cur, err := time.Parse(pipeline.DayLayout, a.cursor); err == nil {
		dom = cur.Day()
	}
	a.month = m
	a.cursor = days[min(dom, len(days))-1]
	return a.retrigger()
}

func (a *App) goToday(now time.Time) tea.Cmd {
	a.cursor = now.Format(pipeline.DayLayout)
	if m := pipeline.CurrentMonth(now); m != a.month {
		a.month = m
		return a.retrigger()
	}
	return nil
}

// counterAt returns the filter of the counter card under (x, y).
func (a App) counterAt(x, y int) (filter.Factor, bool) {
	cy := y - headerHeight
	if cy < 0 || cy >= components.CardHeight {
		return "", false
	}
	cx := x - a.contentOffset()
	cards := a.counters()
	pos := 0
	for i, w := range components.LayoutRow(a.contentWidth(), len(cards)) {
		if cx >= pos && cx < pos+w {
			return cards[i].factor, true
		}
		pos += w
	}
	return "", false
}

// dayAt returns the calendar day under (x, y), or "" for anything else.
func (a App) dayAt(x, y int) string {
	row := y - headerHeight - calendarFirstWeek
	cx := x - a.contentOffset() - calendarInset
	if row < 0 || cx < 0 {
		return ""
	}
	col := cx / components.CalendarCellWidth
	if col >= 7 {
		return ""
	}
	weeks, err := pipeline.MonthGrid(a.month)
	if err != nil || row >= len(weeks) {
		return ""
	}
	return weeks[row][col]
}

func (a App) renderCalendarTab(cw int) string {
	cards := a.counters()
	widths := components.LayoutRow(cw, len(cards))
	rendered := make([]string, len(cards))
	current := a.filters.Filters()
	for i, c := range cards {
		_, active := filter.Find(current, c.factor)
		rendered[i] = components.CounterCard(c.label, c.value, active, widths[i])
	}
	counterRow := components.CardRow(rendered)

	weeks, err := pipeline.MonthGrid(a.month)
	if err != nil {
		return counterRow + "\n" + components.ContentCard("Calendar", err.Error(), cw)
	}
	counts := a.calendarData()
	grid := components.CalendarGrid(weeks, counts, a.cursor, filter.SelectedDay(current))
	calendar := components.ContentCard("◀ "+cli.FormatMonth(a.month)+" ▶", grid+"\n\n"+components.HeatLegend(), calendarCardWidth)

	sideW := cw - calendarCardWidth
	side := lipgloss.JoinVertical(lipgloss.Left,
		a.renderDayCard(counts, sideW),
		a.renderTagsCard(sideW),
	)

	return counterRow + "\n" + components.CardRow([]string{calendar, side})
}

func (a App) renderDayCard(counts map[string]int, outerW int) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	innerW := components.CardInnerWidth(outerW)

	month := pipeline.InMonth(counts, a.month)
	peakDay, peak := pipeline.Peak(month)

	var b strings.Builder
	b.WriteString(labelStyle.Render(cli.FormatDay(a.cursor)+": ") +
		valueStyle.Render(fmt.Sprintf("%d memos", counts[a.cursor])))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Month: ") + valueStyle.Render(cli.FormatNumber(int64(pipeline.Total(month)))))
	if peak > 0 {
		b.WriteString(labelStyle.Render("  busiest ") + valueStyle.Render(cli.FormatDay(peakDay)) +
			labelStyle.Render(fmt.Sprintf(" (%d)", peak)))
	}
	b.WriteString("\n")

	days, _ := pipeline.MonthDays(a.month)
	series := make([]int, len(days))
	for i, d := range days {
		series[i] = counts[d]
	}
	b.WriteString(components.Sparkline(series, t.Accent))
	b.WriteString("\n")

	source := "account statistics"
	if a.orch.HasItems() {
		source = "memo list"
	}
	b.WriteString(dimStyle.Render("Source: " + source))

	if a.orch.HasItems() {
		items := a.orch.OnDay(a.cursor)
		for i, m := range items {
			if i == 3 {
				b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("… %d more", len(items)-3)))
				break
			}
			b.WriteString("\n" + labelStyle.Render("· "+cli.Truncate(m.Content, innerW-2)))
		}
	}

	return components.ContentCard("Day", b.String(), outerW)
}

func (a App) renderTagsCard(outerW int) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	type tagCount struct {
		tag string
		n   int
	}
	tags := make([]tagCount, 0, len(a.snapshot.TagCounts))
	for tag, n := range a.snapshot.TagCounts {
		tags = append(tags, tagCount{tag, n})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].n != tags[j].n {
			return tags[i].n > tags[j].n
		}
		return tags[i].tag < tags[j].tag
	})
	if len(tags) > topTagCount {
		tags = tags[:topTagCount]
	}
	if len(tags) == 0 {
		return components.ContentCard("Tags", labelStyle.Render("No tags yet"), outerW)
	}

	innerW := components.CardInnerWidth(outerW)
	labelW := min(16, innerW/3)
	barW := max(innerW-labelW-8, 4)

	var b strings.Builder
	for i, tc := range tags {
		if i > 0 {
			b.WriteString("\n")
		}
		pct := float64(tc.n) / float64(tags[0].n)
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-*s ", labelW, cli.Truncate("#"+tc.tag, labelW))))
		b.WriteString(components.ShareBar(pct, barW))
		b.WriteString(countStyle.Render(fmt.Sprintf(" %5d", tc.n)))
	}

	c := a.snapshot.Counters()
	if c.Todo > 0 {
		b.WriteString("\n\n" + labelStyle.Render("Tasks  "))
		b.WriteString(components.TodoBar(c.TodoDone(), c.Todo, barW))
	}

	return components.ContentCard("Tags", b.String(), outerW)
}
