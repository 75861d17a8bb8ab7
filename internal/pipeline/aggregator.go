// Package pipeline turns memo lists and statistics into calendar data.
package pipeline

import (
	"sort"
	"time"

	"github.com/theirongolddev/memocal/internal/memos"
)

// DayLayout is the format of calendar day keys.
const DayLayout = "2006-01-02"

// DayCount is one calendar day's bucket.
type DayCount struct {
	Day   string `json:"day" yaml:"day"`
	Count int    `json:"count" yaml:"count"`
}

// DayKey returns the local calendar day of a unix-seconds instant.
func DayKey(unix int64) string {
	return DayKeyIn(unix, time.Local)
}

// DayKeyIn returns the calendar day of a unix-seconds instant in loc.
// A nil loc means time.Local.
func DayKeyIn(unix int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(unix, 0).In(loc).Format(DayLayout)
}

// CountByDay buckets memos by the local day of their creation instant.
// Memos without a creation instant are skipped. Only observed days appear.
func CountByDay(items []memos.Memo) map[string]int {
	return CountByDayIn(items, time.Local)
}

// CountByDayIn is CountByDay with days taken in loc.
func CountByDayIn(items []memos.Memo, loc *time.Location) map[string]int {
	counts := make(map[string]int)
	for _, m := range items {
		ts, ok := m.CreatedUnix()
		if !ok {
			continue
		}
		counts[DayKeyIn(ts, loc)]++
	}
	return counts
}

// CountTimestamps buckets raw unix-seconds instants the same way CountByDay
// buckets memos. Zero instants are skipped.
func CountTimestamps(stamps []memos.Timestamp) map[string]int {
	return CountTimestampsIn(stamps, time.Local)
}

// CountTimestampsIn is CountTimestamps with days taken in loc.
func CountTimestampsIn(stamps []memos.Timestamp, loc *time.Location) map[string]int {
	counts := make(map[string]int)
	for _, ts := range stamps {
		if ts == 0 {
			continue
		}
		counts[DayKeyIn(int64(ts), loc)]++
	}
	return counts
}

// OnDay returns the memos created on the given local day, in input order.
func OnDay(items []memos.Memo, day string) []memos.Memo {
	return OnDayIn(items, day, time.Local)
}

// OnDayIn is OnDay with days taken in loc.
func OnDayIn(items []memos.Memo, day string, loc *time.Location) []memos.Memo {
	var out []memos.Memo
	for _, m := range items {
		ts, ok := m.CreatedUnix()
		if ok && DayKeyIn(ts, loc) == day {
			out = append(out, m)
		}
	}
	return out
}

// SortedDays converts a bucket map to a slice ordered by day (oldest first).
func SortedDays(counts map[string]int) []DayCount {
	days := make([]DayCount, 0, len(counts))
	for day, n := range counts {
		days = append(days, DayCount{Day: day, Count: n})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Day < days[j].Day
	})
	return days
}

// Total sums every bucket.
func Total(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// Peak returns the busiest day and its count. Ties go to the earliest day.
func Peak(counts map[string]int) (string, int) {
	var bestDay string
	best := 0
	for day, n := range counts {
		if n > best || (n == best && n > 0 && day < bestDay) {
			bestDay, best = day, n
		}
	}
	return bestDay, best
}

// InMonth keeps only the buckets whose day falls in month ("2006-01").
func InMonth(counts map[string]int, month string) map[string]int {
	out := make(map[string]int)
	for day, n := range counts {
		if len(day) >= len(MonthLayout) && day[:len(MonthLayout)] == month {
			out[day] = n
		}
	}
	return out
}

// Counters are the per-category totals shown next to the calendar.
type Counters struct {
	Pinned     int `json:"pinned" yaml:"pinned"`
	Links      int `json:"links" yaml:"links"`
	Code       int `json:"code" yaml:"code"`
	Todo       int `json:"todo" yaml:"todo"`
	TodoUndone int `json:"todoUndone" yaml:"todoUndone"`
}

// TodoDone is the number of task-list memos with every task checked.
func (c Counters) TodoDone() int {
	return c.Todo - c.TodoUndone
}

// CountCategories tallies the category flags of a memo list.
func CountCategories(items []memos.Memo) Counters {
	var c Counters
	for _, m := range items {
		if m.Pinned {
			c.Pinned++
		}
		if m.Property == nil {
			continue
		}
		if m.Property.HasLink {
			c.Links++
		}
		if m.Property.HasCode {
			c.Code++
		}
		if m.Property.HasTaskList {
			c.Todo++
			if m.Property.HasIncompleteTasks {
				c.TodoUndone++
			}
		}
	}
	return c
}
