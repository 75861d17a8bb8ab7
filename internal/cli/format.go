// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	return humanize.Comma(n)
}

// FormatCount formats a small count, collapsing large ones with a suffix.
// e.g., 12 -> "12", 1234 -> "1.2K"
func FormatCount(n int) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case abs >= 10_000:
		return fmt.Sprintf("%.0fK", float64(n)/1_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return strconv.Itoa(n)
	}
}

// FormatTodo renders the to-do counter as "done/total" when some tasks
// are still open, and as the plain total otherwise.
func FormatTodo(total, undone int) string {
	if undone > 0 {
		return fmt.Sprintf("%d/%d", total-undone, total)
	}
	return strconv.Itoa(total)
}

// FormatAgo renders t relative to now, e.g. "3 minutes ago".
func FormatAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// FormatMonth renders "2024-03" as "March 2024". Invalid input is returned as is.
func FormatMonth(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return t.Format("January 2006")
}

// FormatDay renders "2024-03-05" as "Tue, Mar 5". Invalid input is returned as is.
func FormatDay(day string) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return day
	}
	return t.Format("Mon, Jan 2")
}

// FormatDayOfWeek returns a 2-letter day abbreviation from a weekday number.
func FormatDayOfWeek(weekday int) string {
	days := []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}
	if weekday >= 0 && weekday < 7 {
		return days[weekday]
	}
	return "??"
}

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
