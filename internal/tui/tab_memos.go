package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/memocal/internal/cli"
	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/pipeline"
	"github.com/theirongolddev/memocal/internal/tui/components"
	"github.com/theirongolddev/memocal/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// visibleMemos returns the stored memo list narrowed to the selected day,
// newest first.
func (a App) visibleMemos() []memos.Memo {
	items := a.orch.Items()
	if day := filter.SelectedDay(a.filters.Filters()); day != "" {
		items = a.orch.OnDay(day)
	} else {
		items = append([]memos.Memo(nil), items...)
	}
	sort.SliceStable(items, func(i, j int) bool {
		ti, _ := items[i].CreatedUnix()
		tj, _ := items[j].CreatedUnix()
		return ti > tj
	})
	return items
}

func (a *App) clampMemoScroll() {
	a.memoScroll = min(a.memoScroll, max(len(a.visibleMemos())-1, 0))
}

func (a *App) memosKey(key string) bool {
	switch key {
	case "j", "down":
		a.memoScroll++
		a.clampMemoScroll()
	case "k", "up":
		a.memoScroll = max(a.memoScroll-1, 0)
	case "g":
		a.memoScroll = 0
	case "G":
		a.memoScroll = len(a.visibleMemos())
		a.clampMemoScroll()
	default:
		return false
	}
	return true
}

func (a App) renderMemosTab(cw, h int) string {
	t := theme.Active
	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	timeStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pinStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
	tagStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	title := "Memos · " + cli.FormatMonth(a.month)
	if day := filter.SelectedDay(a.filters.Filters()); day != "" {
		title = "Memos · " + cli.FormatDay(day)
	}

	if !a.orch.HasItems() {
		msg := "No memo list loaded."
		if err := a.orch.Err(); err != nil {
			msg = "Memo list unavailable: " + err.Error()
		}
		return components.ContentCard(title, labelStyle.Render(msg), cw)
	}

	items := a.visibleMemos()
	c := pipeline.CountCategories(items)
	summary := labelStyle.Render(fmt.Sprintf("%d memos · %s links · %s to-do · %s code",
		len(items), cli.FormatCount(c.Links), cli.FormatTodo(c.Todo, c.TodoUndone), cli.FormatCount(c.Code)))
	if len(items) == 0 {
		return components.ContentCard(title, summary, cw)
	}

	innerW := components.CardInnerWidth(cw)
	rows := max(h-5, 1) // card border, title, summary, blank line
	start := min(a.memoScroll, len(items)-1)
	end := min(start+rows, len(items))

	var b strings.Builder
	b.WriteString(summary)
	b.WriteString("\n")
	for _, m := range items[start:end] {
		b.WriteString("\n")
		stamp := "--"
		if ts, ok := m.CreatedUnix(); ok {
			stamp = time.Unix(ts, 0).Format("Jan 02 15:04")
		}
		line := timeStyle.Render(stamp + " ")
		if m.Pinned {
			line += pinStyle.Render("★ ")
		}
		used := lipgloss.Width(line)
		tags := ""
		if len(m.Tags) > 0 {
			tags = " #" + strings.Join(m.Tags, " #")
		}
		room := max(innerW-used-lipgloss.Width(tags), 10)
		line += valueStyle.Render(cli.Truncate(m.Content, room))
		if tags != "" {
			line += tagStyle.Render(cli.Truncate(tags, max(innerW-lipgloss.Width(line), 1)))
		}
		b.WriteString(line)
	}
	if end < len(items) {
		b.WriteString("\n" + timeStyle.Render(fmt.Sprintf("… %d more (j/k to scroll)", len(items)-end)))
	}

	return components.ContentCard(title, b.String(), cw)
}
