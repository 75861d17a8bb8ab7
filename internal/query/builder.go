// Package query builds the memo list filter expression for one user's
// visible month and active filters.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/pipeline"
)

// ErrInvalidMonth is returned when the visible month is not "YYYY-MM".
var ErrInvalidMonth = pipeline.ErrInvalidMonth

// isoMillis is the timestamp form the server compares display_time against.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Builder produces filter expressions. The zero value uses time.Local for
// the month window.
type Builder struct {
	// Location the month boundaries are computed in.
	Location *time.Location
}

// Build returns the expression for subjectName's memos displayed during
// visibleMonth, narrowed by filters. Unrecognized filter factors add nothing.
func (b Builder) Build(subjectName, visibleMonth string, filters []filter.Filter) (string, error) {
	id, err := memos.ExtractUserID(subjectName)
	if err != nil {
		return "", err
	}

	start, end, err := pipeline.MonthBounds(visibleMonth, b.Location)
	if err != nil {
		return "", err
	}

	clauses := make([]string, 0, 3+len(filters))
	clauses = append(clauses,
		fmt.Sprintf("creator_id == %d", id),
		fmt.Sprintf("display_time >= %q", start.UTC().Format(isoMillis)),
		fmt.Sprintf("display_time <= %q", end.UTC().Format(isoMillis)),
	)
	for _, f := range filters {
		if c, ok := Clause(f); ok {
			clauses = append(clauses, c)
		}
	}
	return strings.Join(clauses, " && "), nil
}

// Build uses a zero Builder.
func Build(subjectName, visibleMonth string, filters []filter.Filter) (string, error) {
	return Builder{}.Build(subjectName, visibleMonth, filters)
}

// Clause maps a single filter to its expression clause. Display-time
// filters never produce one: the month window bounds the query and the
// selected day is applied to the returned memos.
func Clause(f filter.Filter) (string, bool) {
	switch f.Factor {
	case filter.Pinned:
		return "pinned == true", true
	case filter.HasLink:
		return "has_link == true", true
	case filter.HasCode:
		return "has_code == true", true
	case filter.HasTaskList:
		return "has_task_list == true", true
	case filter.Tag, filter.Tags:
		if f.Value == "" {
			return "", false
		}
		return "tag == " + strconv.Quote(f.Value), true
	}
	return "", false
}
