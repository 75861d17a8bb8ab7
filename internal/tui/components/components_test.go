package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/memocal/internal/pipeline"
	"github.com/theirongolddev/memocal/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowHeightMatchesTallest(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	tallLines := lipgloss.Height(tallCard)
	if lipgloss.Height(shortCard) >= tallLines {
		t.Fatal("short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	if got := lipgloss.Height(joined); got != tallLines {
		t.Errorf("joined height = %d, want %d", got, tallLines)
	}
	if got := lipgloss.Width(joined); got != 44 {
		t.Errorf("joined width = %d, want 44", got)
	}
}

func TestCounterCardGeometry(t *testing.T) {
	card := CounterCard("Links", "12", false, 20)
	if got := lipgloss.Height(card); got != CardHeight {
		t.Errorf("height = %d, want %d", got, CardHeight)
	}
	if got := lipgloss.Width(card); got != 20 {
		t.Errorf("width = %d, want 20", got)
	}
	if !strings.Contains(CounterCard("Links", "12", true, 20), "●") {
		t.Error("active card should carry the marker")
	}
}

func TestLayoutRowSumsToTotal(t *testing.T) {
	widths := LayoutRow(83, 4)
	sum := 0
	for _, w := range widths {
		sum += w
	}
	if sum != 83 || widths[0] != 21 || widths[3] != 20 {
		t.Errorf("LayoutRow(83, 4) = %v", widths)
	}
	if LayoutRow(10, 0) != nil {
		t.Error("zero columns should yield nil")
	}
}

func TestCalendarGridShape(t *testing.T) {
	weeks, err := pipeline.MonthGrid("2024-03")
	if err != nil {
		t.Fatal(err)
	}
	grid := CalendarGrid(weeks, map[string]int{"2024-03-05": 2}, "2024-03-05", "2024-03-09")

	if got, want := lipgloss.Height(grid), len(weeks)+1; got != want {
		t.Errorf("grid height = %d, want %d", got, want)
	}
	if got := lipgloss.Width(grid); got != 7*CalendarCellWidth {
		t.Errorf("grid width = %d, want %d", got, 7*CalendarCellWidth)
	}
	if !strings.Contains(grid, "[ 9]") {
		t.Error("selected day should be bracketed")
	}
}

func TestRenderTabBarFillsWidth(t *testing.T) {
	for active := range Tabs {
		if got := lipgloss.Width(RenderTabBar(active, 120)); got != 120 {
			t.Errorf("active=%d: width = %d, want 120", active, got)
		}
	}
	if TabIdxByKey('M') != 1 || TabIdxByKey('z') != -1 {
		t.Error("TabIdxByKey mismatch")
	}
}

func TestSparkline(t *testing.T) {
	if Sparkline(nil, theme.Active.Accent) != "" {
		t.Error("empty sparkline expected")
	}
	if out := Sparkline([]int{0, 4, 8}, theme.Active.Accent); !strings.Contains(out, "█") {
		t.Errorf("peak block missing: %q", out)
	}
}

func TestTodoBarShowsCount(t *testing.T) {
	if out := TodoBar(3, 4, 10); !strings.Contains(out, "3/4") {
		t.Errorf("TodoBar = %q", out)
	}
}
