package filter

import (
	"slices"
	"sync"
)

// Listener is notified with a copy of the filter set after every change.
type Listener func([]Filter)

// Store is the mutable filter set shared by the views.
// Mutations that leave the set unchanged do not notify.
type Store struct {
	mu        sync.Mutex
	filters   []Filter
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a store seeded with initial.
func NewStore(initial ...Filter) *Store {
	return &Store{
		filters:   slices.Clone(initial),
		listeners: make(map[int]Listener),
	}
}

// Filters returns a copy of the current set in insertion order.
func (s *Store) Filters() []Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.filters)
}

// Add appends f. Adding an identical filter twice is a no-op.
func (s *Store) Add(f Filter) {
	s.mu.Lock()
	if slices.Contains(s.filters, f) {
		s.mu.Unlock()
		return
	}
	s.filters = append(s.filters, f)
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
}

// Remove deletes every filter matching pred and reports how many went.
func (s *Store) Remove(pred func(Filter) bool) int {
	s.mu.Lock()
	before := len(s.filters)
	s.filters = slices.DeleteFunc(s.filters, pred)
	removed := before - len(s.filters)
	if removed == 0 {
		s.mu.Unlock()
		return 0
	}
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
	return removed
}

// Update sets the filters to fn's result in one step. fn gets a copy of
// the current set. Listeners hear once, and only if the content changed.
func (s *Store) Update(fn func([]Filter) []Filter) {
	s.mu.Lock()
	next := fn(slices.Clone(s.filters))
	if slices.Equal(s.filters, next) {
		s.mu.Unlock()
		return
	}
	s.filters = slices.Clone(next)
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
}

// Replace swaps the whole set, notifying only if the content differs.
func (s *Store) Replace(filters []Filter) {
	s.Update(func([]Filter) []Filter { return filters })
}

// Clear removes all filters.
func (s *Store) Clear() {
	s.Remove(func(Filter) bool { return true })
}

// Subscribe registers fn and returns a function that unregisters it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) snapshotLocked() ([]Filter, []Listener) {
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.listeners[id])
	}
	return slices.Clone(s.filters), listeners
}

func notify(listeners []Listener, snapshot []Filter) {
	for _, fn := range listeners {
		fn(slices.Clone(snapshot))
	}
}
