// Package daemon keeps one user's activity calendar fresh in the background
// and serves it over HTTP, SSE and WebSocket.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/pipeline"
	"github.com/theirongolddev/memocal/internal/refresh"
	"github.com/theirongolddev/memocal/internal/stats"

	"github.com/gorilla/websocket"
)

// Backend is the part of the memos client the poller needs.
type Backend interface {
	refresh.Lister
	stats.Source
	memos.CurrentUserer
}

// FilterSource yields the persisted filter set, re-read on every poll.
type FilterSource interface {
	LoadFilters() ([]filter.Filter, error)
}

// Config controls the daemon runtime behavior.
type Config struct {
	Backend Backend
	// Stats caches snapshots between polls and restarts. Optional.
	Stats stats.Cache
	// Filters is the persisted filter set. Optional.
	Filters FilterSource
	// Extra filters are appended to the persisted ones.
	Extra []filter.Filter
	// User is the subject; empty resolves the token's account once.
	User string
	// Month pins the visible month; empty follows the current month.
	Month        string
	Location     *time.Location
	PageSize     int
	Interval     time.Duration
	Addr         string
	EventsBuffer int
}

// Calendar is the published state of one poll.
type Calendar struct {
	At          time.Time         `json:"at"`
	Subject     string            `json:"subject"`
	Month       string            `json:"month"`
	Filters     []filter.Filter   `json:"filters"`
	SelectedDay string            `json:"selected_day,omitempty"`
	Source      string            `json:"source"`
	Days        map[string]int    `json:"days"`
	Total       int               `json:"total"`
	Counters    pipeline.Counters `json:"counters"`
	FetchError  string            `json:"fetch_error,omitempty"`
	StatsStale  bool              `json:"stats_stale,omitempty"`
}

// Delta lists the days whose count changed between polls.
type Delta struct {
	Days  map[string]int `json:"days,omitempty"`
	Total int            `json:"total"`
}

func (d Delta) isZero() bool {
	return d.Total == 0 && len(d.Days) == 0
}

// Event is emitted when the calendar appears or changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Calendar  Calendar  `json:"calendar"`
	Delta     Delta     `json:"delta"`
}

const (
	eventSnapshot = "snapshot"
	eventDelta    = "calendar_delta"
)

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	FetchCount      uint64    `json:"fetch_count"`
	Subject         string    `json:"subject,omitempty"`
	Month           string    `json:"month,omitempty"`
	State           string    `json:"state"`
	Total           int       `json:"total"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg      Config
	orch     *refresh.Orchestrator
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	subject     string
	fetchCount  uint64
	hasCalendar bool
	calendar    Calendar
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 60 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	return &Service{
		cfg:       cfg,
		orch:      refresh.New(refresh.WithPageSize(cfg.PageSize), refresh.WithLocation(cfg.Location)),
		startedAt: time.Now(),
		subject:   memos.NormalizeUserName(cfg.User),
		subs:      make(map[int]chan Event),
		upgrader: websocket.Upgrader{
			CheckOrigin: loopbackOrigin,
		},
	}
}

// loopbackOrigin admits non-browser clients (no Origin header) and pages
// served from this machine.
func loopbackOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/calendar", s.handleCalendar)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.HandleFunc("/v1/ws", s.handleWebSocket)
	return mux
}

// Run serves the API and polls until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed the calendar so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) month(now time.Time) string {
	if s.cfg.Month != "" {
		return s.cfg.Month
	}
	return pipeline.CurrentMonth(now.In(s.cfg.Location))
}

func (s *Service) filters() ([]filter.Filter, error) {
	var out []filter.Filter
	if s.cfg.Filters != nil {
		persisted, err := s.cfg.Filters.LoadFilters()
		if err != nil {
			return nil, fmt.Errorf("loading filters: %w", err)
		}
		out = append(out, persisted...)
	}
	return append(out, s.cfg.Extra...), nil
}

func (s *Service) fail(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.lastPollAt = time.Now()
	s.pollCount++
	s.mu.Unlock()
	log.Printf("memocal daemon poll error: %v", err)
}

// pollOnce refreshes statistics and the month memo list, then publishes
// an event if the calendar is new or changed.
func (s *Service) pollOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	s.mu.RLock()
	subject := s.subject
	s.mu.RUnlock()
	if subject == "" {
		name, err := memos.ResolveSubject(ctx, s.cfg.Backend, "")
		if err != nil {
			s.fail(err)
			return
		}
		subject = name
		s.mu.Lock()
		s.subject = name
		s.mu.Unlock()
	}

	filters, err := s.filters()
	if err != nil {
		s.fail(err)
		return
	}

	snap, statsErr := stats.Load(ctx, s.cfg.Backend, s.cfg.Stats, subject, s.cfg.Location)
	if statsErr != nil {
		log.Printf("memocal daemon stats: %v", statsErr)
	}

	now := time.Now()
	month := s.month(now)

	// The orchestrator belongs to the poll goroutine; handlers only see
	// what commit publishes. Every poll refetches since new memos do not
	// change the trigger.
	s.orch.Reset()
	req, err := s.orch.Trigger(subject, month, filters)
	if err != nil {
		s.fail(err)
		return
	}
	s.orch.Apply(refresh.Fetch(ctx, s.cfg.Backend, req))
	if ferr := s.orch.Err(); ferr != nil {
		log.Printf("memocal daemon memo list: %v, showing statistics", ferr)
	}

	cal := s.buildCalendar(now, subject, month, filters, snap)
	s.commit(cal, statsErr)
}

func (s *Service) buildCalendar(now time.Time, subject, month string, filters []filter.Filter, snap stats.Snapshot) Calendar {
	days := pipeline.InMonth(s.orch.CalendarData(snap.ActivityByDay), month)
	source := "statistics"
	if s.orch.HasItems() {
		source = "memos"
	}
	cal := Calendar{
		At:          now,
		Subject:     subject,
		Month:       month,
		Filters:     filters,
		SelectedDay: filter.SelectedDay(filters),
		Source:      source,
		Days:        days,
		Total:       pipeline.Total(days),
		Counters:    snap.Counters(),
		StatsStale:  snap.Stale,
	}
	if cal.Filters == nil {
		cal.Filters = []filter.Filter{}
	}
	if err := s.orch.Err(); err != nil {
		cal.FetchError = err.Error()
	}
	return cal
}

func (s *Service) commit(cal Calendar, pollErr error) {
	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.calendar
	prevExists := s.hasCalendar

	s.hasCalendar = true
	s.calendar = cal
	s.fetchCount = s.orch.Seq()
	s.lastPollAt = cal.At
	s.pollCount++
	s.lastError = ""
	if pollErr != nil {
		s.lastError = pollErr.Error()
	}

	switch {
	case !prevExists || !sameView(prev, cal):
		ev = Event{Type: eventSnapshot, Calendar: cal}
		publish = true
	default:
		if delta := diffCalendars(prev, cal); !delta.isZero() {
			ev = Event{Type: eventDelta, Calendar: cal, Delta: delta}
			publish = true
		}
	}
	if publish {
		s.nextEventID++
		ev.ID = s.nextEventID
		ev.Timestamp = cal.At
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

// sameView reports whether two calendars answer the same question, so
// their day counts can be compared.
func sameView(a, b Calendar) bool {
	return a.Subject == b.Subject &&
		a.Month == b.Month &&
		a.Source == b.Source &&
		filter.Key(a.Filters) == filter.Key(b.Filters)
}

func diffCalendars(prev, curr Calendar) Delta {
	d := Delta{Total: curr.Total - prev.Total}
	for day, n := range curr.Days {
		if diff := n - prev.Days[day]; diff != 0 {
			if d.Days == nil {
				d.Days = make(map[string]int)
			}
			d.Days[day] = diff
		}
	}
	for day, n := range prev.Days {
		if _, ok := curr.Days[day]; !ok {
			if d.Days == nil {
				d.Days = make(map[string]int)
			}
			d.Days[day] = -n
		}
	}
	return d
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		FetchCount:      s.fetchCount,
		Subject:         s.subject,
		State:           "pending",
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
	if s.hasCalendar {
		st.Month = s.calendar.Month
		st.Total = s.calendar.Total
		st.State = "populated"
		if s.calendar.Source != "memos" {
			st.State = "fallback"
		}
	}
	return st
}

func (s *Service) currentCalendar() (Calendar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calendar, s.hasCalendar
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.snapshotStatus())
}

func (s *Service) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	cal, ok := s.currentCalendar()
	if !ok {
		http.Error(w, "no calendar yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, cal)
}

// handleEvents lists retained events; ?since=<id> returns only newer ones.
func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	var since int64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "since must be an event id", http.StatusBadRequest)
			return
		}
		since = n
	}

	s.mu.RLock()
	events := make([]Event, 0, len(s.events))
	for _, ev := range s.events {
		if ev.ID > since {
			events = append(events, ev)
		}
	}
	s.mu.RUnlock()

	writeJSON(w, events)
}

// currentEvent wraps the latest calendar for clients that just connected.
func (s *Service) currentEvent() (Event, bool) {
	cal, ok := s.currentCalendar()
	if !ok {
		return Event{}, false
	}
	return Event{Type: eventSnapshot, Timestamp: time.Now(), Calendar: cal}, true
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	if current, ok := s.currentEvent(); ok {
		writeSSE(w, current)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// The read loop only notices the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("memocal daemon websocket: %v", err)
				}
				return
			}
		}
	}()

	send := func(ev Event) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(ev) == nil
	}

	if current, ok := s.currentEvent(); ok && !send(current) {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if !send(ev) {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
