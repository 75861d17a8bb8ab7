package tui

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/memocal/internal/config"
	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/pipeline"
	"github.com/theirongolddev/memocal/internal/refresh"

	tea "github.com/charmbracelet/bubbletea"
)

const memoListJSON = `{"memos":[
	{"name":"memos/1","content":"first","createdTs":1709287200,"property":{"hasLink":true}},
	{"name":"memos/2","content":"second","createdTs":1709287260}
]}`

func newTestApp(t *testing.T, subject string, handler http.HandlerFunc) App {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"memos":[]}`))
		}
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Server.URL = srv.URL
	cfg.General.Timezone = "UTC"
	a := NewApp(Options{
		Config: cfg,
		Connect: func(c config.Config) *memos.Client {
			return memos.NewClient(c.Server.URL, "token")
		},
		Subject: subject,
		Month:   "2024-03",
	})
	if a.needSetup {
		t.Fatal("configured app should not ask for setup")
	}

	a, _ = step(t, a, tea.WindowSizeMsg{Width: 100, Height: 40})
	a, _ = step(t, a, userResolvedMsg{subject: memos.NormalizeUserName(subject)})
	return a
}

func step(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	m, cmd := a.Update(msg)
	next, ok := m.(App)
	if !ok {
		t.Fatalf("Update returned %T", m)
	}
	return next, cmd
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func click(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress}
}

func TestNewApp_WithoutServerAsksForSetup(t *testing.T) {
	a := NewApp(Options{
		Config:  config.DefaultConfig(),
		Connect: func(c config.Config) *memos.Client { return memos.NewClient(c.Server.URL, "") },
	})
	if !a.needSetup || a.setupForm == nil {
		t.Fatal("expected the setup form when no server is configured")
	}
}

func TestResolvedSubjectIssuesFirstFetch(t *testing.T) {
	a := newTestApp(t, "users/1", nil)

	if !a.loaded || a.subject != "users/1" {
		t.Fatalf("loaded=%v subject=%q", a.loaded, a.subject)
	}
	if a.orch.Seq() != 1 || a.orch.State() != refresh.Fetching {
		t.Fatalf("seq=%d state=%s, want 1 fetching", a.orch.Seq(), a.orch.State())
	}
	if got := a.statusText(); got != "loading" {
		t.Errorf("statusText = %q, want loading", got)
	}
}

func TestStaleMemoResultIsDropped(t *testing.T) {
	a := newTestApp(t, "users/1", nil)
	a, _ = step(t, a, keyMsg("]")) // April issues seq 2
	if a.month != "2024-04" || a.orch.Seq() != 2 {
		t.Fatalf("month=%s seq=%d", a.month, a.orch.Seq())
	}

	stale := refresh.Result{Seq: 1, Memos: []memos.Memo{{Name: "memos/9"}}}
	a, _ = step(t, a, memosLoadedMsg{result: stale})
	if a.orch.HasItems() || !a.refreshing {
		t.Fatal("stale result must not be applied")
	}

	a, _ = step(t, a, memosLoadedMsg{result: refresh.Result{Seq: 2, Memos: []memos.Memo{}}})
	if !a.orch.HasItems() || a.refreshing {
		t.Fatal("latest result should be applied")
	}
	if got := a.statusText(); got != "all memos" {
		t.Errorf("statusText = %q", got)
	}
}

func TestFailedFetchFallsBackToStatistics(t *testing.T) {
	a := newTestApp(t, "users/1", nil)
	a.snapshot.ActivityByDay = map[string]int{"2024-03-05": 4}

	a, _ = step(t, a, memosLoadedMsg{result: refresh.Result{Seq: 1, Err: errors.New("boom")}})

	if got := a.statusText(); !strings.HasPrefix(got, "fallback: ") || !strings.Contains(got, "boom") {
		t.Errorf("statusText = %q", got)
	}
	if got := a.calendarData()["2024-03-05"]; got != 4 {
		t.Errorf("calendar should show statistics, got %d", got)
	}
}

func TestCounterClickTogglesFilter(t *testing.T) {
	a := newTestApp(t, "users/1", nil)

	// No pinned memos: Links is the first card.
	a, _ = step(t, a, click(1, headerHeight+1))
	if _, ok := filter.Find(a.filters.Filters(), filter.HasLink); !ok {
		t.Fatalf("links filter not added: %v", a.filters.Filters())
	}

	release := click(1, headerHeight+1)
	release.Action = tea.MouseActionRelease
	a, _ = step(t, a, release)
	if len(a.filters.Filters()) != 1 {
		t.Fatalf("release must not toggle again: %v", a.filters.Filters())
	}

	a, _ = step(t, a, click(1, headerHeight+1))
	if len(a.filters.Filters()) != 0 {
		t.Fatalf("second click should remove the filter: %v", a.filters.Filters())
	}
}

func TestDayClickSelectsSingleDay(t *testing.T) {
	a := newTestApp(t, "users/1", nil)

	// March 2024 starts on a Friday: first row, sixth column.
	y := headerHeight + calendarFirstWeek
	a, _ = step(t, a, click(calendarInset+5*4+1, y))
	if got := filter.SelectedDay(a.filters.Filters()); got != "2024-03-01" {
		t.Fatalf("selected day = %q", got)
	}

	a, _ = step(t, a, click(calendarInset+1, y+1)) // Sunday March 3
	filters := a.filters.Filters()
	if len(filters) != 1 || filters[0].Value != "2024-03-03" {
		t.Fatalf("filters = %v, want only 2024-03-03", filters)
	}
	if a.cursor != "2024-03-03" {
		t.Errorf("cursor = %q", a.cursor)
	}
}

func TestFilterChangeRetriggersOnce(t *testing.T) {
	a := newTestApp(t, "users/1", nil)

	a, _ = step(t, a, keyMsg("3"))
	a, cmd := step(t, a, filtersChangedMsg{})
	if cmd == nil || a.orch.Seq() != 2 {
		t.Fatalf("seq = %d, want a second fetch", a.orch.Seq())
	}

	a, _ = step(t, a, filtersChangedMsg{})
	if a.orch.Seq() != 2 {
		t.Errorf("unchanged inputs issued another fetch: seq %d", a.orch.Seq())
	}
}

func TestInvalidSubjectReportsErrorWithoutFetch(t *testing.T) {
	a := newTestApp(t, "alice", nil)

	if a.orch.Seq() != 0 || a.refreshing {
		t.Fatalf("no fetch expected, seq=%d", a.orch.Seq())
	}
	if got := a.statusText(); !strings.Contains(got, "invalid user name") {
		t.Errorf("statusText = %q", got)
	}
}

func TestCursorFollowsIntoPreviousMonth(t *testing.T) {
	a := newTestApp(t, "users/1", nil)
	if a.cursor != "2024-03-01" {
		t.Fatalf("cursor = %q", a.cursor)
	}

	a, _ = step(t, a, keyMsg("h"))
	if a.cursor != "2024-02-29" || a.month != "2024-02" {
		t.Fatalf("cursor=%s month=%s", a.cursor, a.month)
	}
	if a.orch.Seq() != 2 {
		t.Errorf("month change should fetch, seq=%d", a.orch.Seq())
	}
}

func TestShiftMonthClampsDay(t *testing.T) {
	a := newTestApp(t, "users/1", nil)
	a.month, a.cursor = "2024-01", "2024-01-31"

	a, _ = step(t, a, keyMsg("]"))
	if a.cursor != "2024-02-29" {
		t.Errorf("cursor = %q, want 2024-02-29", a.cursor)
	}
}

func TestEnterAndEscManageDayFilter(t *testing.T) {
	a := newTestApp(t, "users/1", nil)
	a, _ = step(t, a, keyMsg("l"))
	a, _ = step(t, a, keyMsg("enter"))
	if got := filter.SelectedDay(a.filters.Filters()); got != "2024-03-02" {
		t.Fatalf("selected = %q", got)
	}
	a, _ = step(t, a, keyMsg("esc"))
	if got := filter.SelectedDay(a.filters.Filters()); got != "" {
		t.Errorf("day filter should be cleared, got %q", got)
	}
}

func TestFetchCommandPopulatesCalendar(t *testing.T) {
	var gotFilter string
	a := newTestApp(t, "users/1", func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		_, _ = w.Write([]byte(memoListJSON))
	})

	a.orch.Reset()
	cmd := a.retrigger()
	if cmd == nil {
		t.Fatal("expected a fetch command")
	}
	a, _ = step(t, a, cmd())

	if !strings.HasPrefix(gotFilter, "creator_id == 1 && ") {
		t.Errorf("filter = %q", gotFilter)
	}
	day := pipeline.DayKeyIn(1709287200, time.UTC)
	if got := a.calendarData()[day]; got != 2 {
		t.Errorf("calendar[%s] = %d, want 2", day, got)
	}
	if got := len(a.visibleMemos()); got != 2 {
		t.Errorf("visible memos = %d", got)
	}
}

func TestViewRendersCalendar(t *testing.T) {
	a := newTestApp(t, "users/1", nil)
	out := a.View()
	for _, want := range []string{"March 2024", "Links", "To-do", "Calendar"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	a, _ = step(t, a, keyMsg("M"))
	if a.activeTab != tabMemos {
		t.Fatalf("activeTab = %d", a.activeTab)
	}
	if out := a.View(); !strings.Contains(out, "No memo list loaded") {
		t.Error("memos tab should explain the missing list")
	}
}
