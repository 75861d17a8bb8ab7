package filter

import "slices"

// Toggle adds {factor, value} if it is absent and removes it otherwise.
// It reports whether the filter is active afterwards.
func Toggle(s *Store, factor Factor, value string) bool {
	target := Filter{Factor: factor, Value: value}
	var active bool
	s.Update(func(fs []Filter) []Filter {
		before := len(fs)
		fs = slices.DeleteFunc(fs, func(f Filter) bool { return f == target })
		active = len(fs) == before
		if active {
			fs = append(fs, target)
		}
		return fs
	})
	return active
}

// SelectDay replaces any display-time filter with one for day ("2006-01-02").
// At most one display-time filter is active afterwards.
// Listeners hear once, and not at all when day is already the selection.
func SelectDay(s *Store, day string) {
	s.Update(func(fs []Filter) []Filter {
		i := slices.IndexFunc(fs, isDay)
		if i < 0 {
			return append(fs, Filter{Factor: DisplayTime, Value: day})
		}
		fs[i].Value = day
		rest := slices.DeleteFunc(fs[i+1:], isDay)
		return append(fs[:i+1], rest...)
	})
}

func isDay(f Filter) bool { return f.Factor == DisplayTime }

// ClearDay removes the display-time filter if present.
func ClearDay(s *Store) bool {
	return s.Remove(isDay) > 0
}
