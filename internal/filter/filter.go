// Package filter holds the active content filters of the calendar view
// and the user actions that edit them.
package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Factor is the kind of a filter. Unknown factors are carried through
// untouched; consumers ignore what they do not recognize.
type Factor string

// Recognized factors, as they appear on the wire.
const (
	Pinned      Factor = "pinned"
	HasLink     Factor = "property.hasLink"
	HasCode     Factor = "property.hasCode"
	HasTaskList Factor = "property.hasTaskList"
	Tag         Factor = "tag"
	Tags        Factor = "tags"
	DisplayTime Factor = "displayTime"
)

// ErrEmptyFactor is returned by Parse for an input without a factor.
var ErrEmptyFactor = errors.New("filter: empty factor")

// Filter is one active criterion. Value is empty for flag-style factors.
type Filter struct {
	Factor Factor `json:"factor" yaml:"factor"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
}

// IsTag reports whether the filter narrows by tag.
func (f Filter) IsTag() bool {
	return f.Factor == Tag || f.Factor == Tags
}

// String renders the filter in the form Parse accepts.
func (f Filter) String() string {
	if f.Value == "" {
		return string(f.Factor)
	}
	return string(f.Factor) + "=" + f.Value
}

// Label returns a short human label for pills and tables.
func (f Filter) Label() string {
	switch f.Factor {
	case Pinned:
		return "Pinned"
	case HasLink:
		return "Links"
	case HasCode:
		return "Code"
	case HasTaskList:
		return "To-do"
	case Tag, Tags:
		if f.Value == "" {
			return "#"
		}
		return "#" + f.Value
	case DisplayTime:
		return "Day " + f.Value
	}
	return f.String()
}

// aliases maps short CLI names to wire factors.
var aliases = map[string]Factor{
	"pinned":        Pinned,
	"pin":           Pinned,
	"link":          HasLink,
	"links":         HasLink,
	"has-link":      HasLink,
	"hasLink":       HasLink,
	"code":          HasCode,
	"has-code":      HasCode,
	"hasCode":       HasCode,
	"todo":          HasTaskList,
	"tasks":         HasTaskList,
	"has-task-list": HasTaskList,
	"hasTaskList":   HasTaskList,
	"hasTasks":      HasTaskList,
	"tag":           Tag,
	"tags":          Tags,
	"day":           DisplayTime,
	"date":          DisplayTime,
	"display-time":  DisplayTime,
}

// Parse reads "factor" or "factor=value". Short aliases such as "link",
// "has-link", "todo" and "day" map to their wire factors; anything else is
// kept verbatim.
func Parse(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	name, value, _ := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return Filter{}, fmt.Errorf("%w: %q", ErrEmptyFactor, s)
	}

	factor, ok := aliases[name]
	if !ok {
		factor = Factor(name)
	}
	return Filter{Factor: factor, Value: strings.TrimSpace(value)}, nil
}

// Key serializes filters by value. Two sequences with equal content in
// the same order produce the same key.
func Key(filters []Filter) string {
	if len(filters) == 0 {
		return ""
	}
	var b strings.Builder
	for i, f := range filters {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(string(f.Factor)))
		b.WriteByte(':')
		b.WriteString(strconv.Quote(f.Value))
	}
	return b.String()
}

// Find returns the first filter with the given factor.
func Find(filters []Filter, factor Factor) (Filter, bool) {
	for _, f := range filters {
		if f.Factor == factor {
			return f, true
		}
	}
	return Filter{}, false
}

// SelectedDay returns the value of the display-time filter, if any.
func SelectedDay(filters []Filter) string {
	f, _ := Find(filters, DisplayTime)
	return f.Value
}
