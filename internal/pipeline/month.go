package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MonthLayout is the format of a visible month.
const MonthLayout = "2006-01"

// ErrInvalidMonth is returned for a month that is not "YYYY-MM".
var ErrInvalidMonth = errors.New("pipeline: invalid month (want YYYY-MM)")

// ParseMonth returns midnight on the first day of month in loc.
// A nil loc means time.Local.
func ParseMonth(month string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	month = strings.TrimSpace(month)
	t, err := time.ParseInLocation(MonthLayout, month, loc)
	if err != nil || len(month) != len(MonthLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}
	return t, nil
}

// MonthBounds returns the first and last millisecond of month in loc.
func MonthBounds(month string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := ParseMonth(month, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end, nil
}

// CurrentMonth formats now as a visible month in now's location.
func CurrentMonth(now time.Time) string {
	return now.Format(MonthLayout)
}

// ShiftMonth moves month by n months (negative goes back).
func ShiftMonth(month string, n int) (string, error) {
	t, err := ParseMonth(month, time.UTC)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, n, 0).Format(MonthLayout), nil
}

// MonthGrid lays month out as weeks of seven day keys, Sunday first.
// Cells outside the month are empty strings.
func MonthGrid(month string) ([][]string, error) {
	first, err := ParseMonth(month, time.UTC)
	if err != nil {
		return nil, err
	}
	daysIn := first.AddDate(0, 1, -1).Day()
	lead := int(first.Weekday())

	var weeks [][]string
	week := make([]string, 7)
	col := lead
	for d := 1; d <= daysIn; d++ {
		week[col] = first.AddDate(0, 0, d-1).Format(DayLayout)
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = make([]string, 7)
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks, nil
}

// MonthDays lists every day key of month in order.
func MonthDays(month string) ([]string, error) {
	first, err := ParseMonth(month, time.UTC)
	if err != nil {
		return nil, err
	}
	var days []string
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DayLayout))
	}
	return days, nil
}

// HeatLevels is the number of shading steps above zero.
const HeatLevels = 4

// HeatLevel maps a day count to 0..HeatLevels relative to the month peak.
// Any non-zero count gets at least level 1.
func HeatLevel(n, peak int) int {
	if n <= 0 || peak <= 0 {
		return 0
	}
	level := (n*HeatLevels + peak - 1) / peak
	return min(max(level, 1), HeatLevels)
}
