package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/pipeline"

	"github.com/gorilla/websocket"
)

// midMarch stays inside March 2024 in every zone.
const midMarch = 1710504000

type fakeBackend struct {
	mu       sync.Mutex
	items    []memos.Memo
	listErr  error
	stamps   []memos.Timestamp
	filters  []string
	meCalls  int
	statsFor []string
}

func (f *fakeBackend) ListMemos(_ context.Context, req memos.ListMemosRequest) (*memos.ListMemosResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, req.Filter)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &memos.ListMemosResponse{Memos: append([]memos.Memo(nil), f.items...)}, nil
}

func (f *fakeBackend) GetUserStats(_ context.Context, user string) (*memos.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsFor = append(f.statsFor, user)
	return &memos.UserStats{
		Name:                  user,
		MemoDisplayTimestamps: f.stamps,
		MemoTypeStats:         memos.MemoTypeStats{LinkCount: 3},
	}, nil
}

func (f *fakeBackend) CurrentUser(context.Context) (*memos.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	return &memos.User{Name: "users/7"}, nil
}

type staticFilters []filter.Filter

func (s staticFilters) LoadFilters() ([]filter.Filter, error) { return s, nil }

func memoAt(name string, ts int64) memos.Memo {
	return memos.Memo{Name: name, CreatedTs: &ts}
}

func newTestService(backend *fakeBackend, cfg Config) *Service {
	cfg.Backend = backend
	cfg.Month = "2024-03"
	cfg.Location = time.UTC
	if cfg.User == "" {
		cfg.User = "users/1"
	}
	return New(cfg)
}

func drainEvents(s *Service) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}

func TestDiffCalendars(t *testing.T) {
	prev := Calendar{Days: map[string]int{"2024-03-01": 2, "2024-03-02": 1}, Total: 3}
	curr := Calendar{Days: map[string]int{"2024-03-01": 3, "2024-03-05": 1}, Total: 4}

	delta := diffCalendars(prev, curr)
	if delta.Total != 1 {
		t.Fatalf("Total delta = %d, want 1", delta.Total)
	}
	want := map[string]int{"2024-03-01": 1, "2024-03-02": -1, "2024-03-05": 1}
	if len(delta.Days) != len(want) {
		t.Fatalf("Days delta = %v, want %v", delta.Days, want)
	}
	for day, n := range want {
		if delta.Days[day] != n {
			t.Errorf("Days[%s] = %d, want %d", day, delta.Days[day], n)
		}
	}
	if delta.isZero() {
		t.Fatal("delta unexpectedly reported as zero")
	}
	if !diffCalendars(curr, curr).isZero() {
		t.Fatal("identical calendars should have a zero delta")
	}
}

func TestPublishEventRingBuffer(t *testing.T) {
	s := New(Config{Interval: 10 * time.Second, EventsBuffer: 2})

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	events := drainEvents(s)
	if len(events) != 2 {
		t.Fatalf("events len = %d, want 2", len(events))
	}
	if events[0].ID != 2 || events[1].ID != 3 {
		t.Fatalf("events ring contains IDs [%d, %d], want [2, 3]", events[0].ID, events[1].ID)
	}
}

func TestPollOnce_SnapshotThenDelta(t *testing.T) {
	backend := &fakeBackend{items: []memos.Memo{memoAt("memos/1", midMarch)}}
	s := newTestService(backend, Config{})
	ctx := context.Background()

	s.pollOnce(ctx)
	events := drainEvents(s)
	if len(events) != 1 || events[0].Type != eventSnapshot {
		t.Fatalf("first poll events = %+v, want one snapshot", events)
	}
	day := pipeline.DayKeyIn(midMarch, time.UTC)
	if got := events[0].Calendar.Days[day]; got != 1 {
		t.Errorf("calendar[%s] = %d, want 1", day, got)
	}
	if events[0].Calendar.Source != "memos" {
		t.Errorf("source = %q", events[0].Calendar.Source)
	}

	s.pollOnce(ctx)
	if got := len(drainEvents(s)); got != 1 {
		t.Fatalf("unchanged poll published an event, have %d", got)
	}

	backend.mu.Lock()
	backend.items = append(backend.items, memoAt("memos/2", midMarch+60))
	backend.mu.Unlock()

	s.pollOnce(ctx)
	events = drainEvents(s)
	if len(events) != 2 || events[1].Type != eventDelta {
		t.Fatalf("events = %+v, want a calendar_delta", events)
	}
	if events[1].Delta.Days[day] != 1 || events[1].Delta.Total != 1 {
		t.Errorf("delta = %+v", events[1].Delta)
	}
	if events[1].ID != events[0].ID+1 {
		t.Errorf("event ids %d, %d not consecutive", events[0].ID, events[1].ID)
	}

	st := s.snapshotStatus()
	if st.PollCount != 3 || st.FetchCount != 3 || st.State != "populated" || st.Total != 2 {
		t.Errorf("status = %+v", st)
	}
}

func TestPollOnce_FallsBackToStatistics(t *testing.T) {
	backend := &fakeBackend{
		listErr: errors.New("list down"),
		stamps:  []memos.Timestamp{midMarch, midMarch + 60},
	}
	s := newTestService(backend, Config{})

	s.pollOnce(context.Background())

	cal, ok := s.currentCalendar()
	if !ok {
		t.Fatal("no calendar published")
	}
	if cal.Source != "statistics" || !strings.Contains(cal.FetchError, "list down") {
		t.Errorf("source=%q fetchError=%q", cal.Source, cal.FetchError)
	}
	if got := cal.Days[pipeline.DayKeyIn(midMarch, time.UTC)]; got != 2 {
		t.Errorf("fallback count = %d, want 2", got)
	}
	if cal.Counters.Links != 3 {
		t.Errorf("counters = %+v", cal.Counters)
	}
	if st := s.snapshotStatus(); st.State != "fallback" {
		t.Errorf("state = %q", st.State)
	}
}

func TestPollOnce_ResolvesUserAndAppliesFilters(t *testing.T) {
	backend := &fakeBackend{}
	s := New(Config{
		Backend:  backend,
		Month:    "2024-03",
		Location: time.UTC,
		Filters:  staticFilters{{Factor: filter.Pinned}},
		Extra:    []filter.Filter{{Factor: filter.Tag, Value: "work"}},
	})

	s.pollOnce(context.Background())
	s.pollOnce(context.Background())

	if backend.meCalls != 1 {
		t.Errorf("current user looked up %d times, want 1", backend.meCalls)
	}
	if len(backend.filters) != 2 {
		t.Fatalf("list calls = %d, want 2", len(backend.filters))
	}
	want := `creator_id == 7 && display_time >= "2024-03-01T00:00:00.000Z" && ` +
		`display_time <= "2024-03-31T23:59:59.999Z" && pinned == true && tag == "work"`
	if backend.filters[0] != want {
		t.Errorf("filter =\n%s\nwant\n%s", backend.filters[0], want)
	}
	if cal, _ := s.currentCalendar(); cal.Subject != "users/7" || len(cal.Filters) != 2 {
		t.Errorf("calendar = %+v", cal)
	}
}

func TestPollOnce_InvalidSubjectRecordsError(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestService(backend, Config{User: "alice"})

	s.pollOnce(context.Background())

	st := s.snapshotStatus()
	if !strings.Contains(st.LastError, "invalid user name") {
		t.Errorf("last error = %q", st.LastError)
	}
	if len(backend.filters) != 0 {
		t.Errorf("no list call expected, got %v", backend.filters)
	}
	if _, ok := s.currentCalendar(); ok {
		t.Error("no calendar should be published")
	}
}

func TestHandlers(t *testing.T) {
	backend := &fakeBackend{items: []memos.Memo{memoAt("memos/1", midMarch)}}
	s := newTestService(backend, Config{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/calendar")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("calendar before first poll: HTTP %d", resp.StatusCode)
	}

	s.pollOnce(context.Background())

	resp, err = http.Get(srv.URL + "/v1/calendar")
	if err != nil {
		t.Fatal(err)
	}
	var cal Calendar
	err = json.NewDecoder(resp.Body).Decode(&cal)
	_ = resp.Body.Close()
	if err != nil || cal.Month != "2024-03" || cal.Total != 1 {
		t.Fatalf("calendar = %+v, err %v", cal, err)
	}

	resp, err = http.Get(srv.URL + "/v1/events?since=1")
	if err != nil {
		t.Fatal(err)
	}
	var events []Event
	err = json.NewDecoder(resp.Body).Decode(&events)
	_ = resp.Body.Close()
	if err != nil || len(events) != 0 {
		t.Fatalf("events since 1 = %+v, err %v", events, err)
	}

	resp, err = http.Get(srv.URL + "/v1/events?since=x")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad since: HTTP %d", resp.StatusCode)
	}
}

func TestWebSocketPushesCalendar(t *testing.T) {
	backend := &fakeBackend{items: []memos.Memo{memoAt("memos/1", midMarch)}}
	s := newTestService(backend, Config{})
	s.pollOnce(context.Background())

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read current: %v", err)
	}
	if first.Type != eventSnapshot || first.Calendar.Total != 1 {
		t.Fatalf("first event = %+v", first)
	}

	backend.mu.Lock()
	backend.items = append(backend.items, memoAt("memos/2", midMarch+60))
	backend.mu.Unlock()

	// The handler subscribes before sending the current calendar, so this
	// poll's event cannot be missed.
	s.pollOnce(context.Background())

	var next Event
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read pushed: %v", err)
	}
	if next.Type != eventDelta || next.Calendar.Total != 2 {
		t.Fatalf("pushed event = %+v", next)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	s := newTestService(&fakeBackend{}, Config{})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"

	header := http.Header{"Origin": []string{"https://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		_ = conn.Close()
		t.Fatal("foreign origin was upgraded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %v, want 403", resp)
	}

	for _, origin := range []string{"http://127.0.0.1:8787", "http://localhost:3000", "http://[::1]:8787"} {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": []string{origin}})
		if err != nil {
			t.Errorf("origin %s rejected: %v", origin, err)
			continue
		}
		_ = conn.Close()
	}
}

func TestLoopbackOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:8080", true},
		{"http://127.0.0.1", true},
		{"http://127.8.0.1:9", true},
		{"http://[::1]:8787", true},
		{"https://evil.example", false},
		{"http://localhost.evil.example", false},
		{"null", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/v1/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := loopbackOrigin(r); got != tt.want {
			t.Errorf("loopbackOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}
