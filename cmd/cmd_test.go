package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/memocal/internal/config"
	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/pipeline"
	"github.com/theirongolddev/memocal/internal/refresh"
	"github.com/theirongolddev/memocal/internal/stats"

	"gopkg.in/yaml.v3"
)

func TestRankTags(t *testing.T) {
	got := rankTags(map[string]int{"work": 3, "idea": 5, "book": 3, "misc": 1}, 3)
	want := []tagCount{{"idea", 5}, {"book", 3}, {"work", 3}}
	if len(got) != len(want) {
		t.Fatalf("rankTags = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rank %d = %v, want %v", i, got[i], want[i])
		}
	}
	if all := rankTags(map[string]int{"a": 1, "b": 2}, 0); len(all) != 2 {
		t.Errorf("limit 0 should keep every tag, got %v", all)
	}
}

func TestMatchFilter(t *testing.T) {
	fs := filter.NewStore(
		filter.Filter{Factor: filter.Tag, Value: "work"},
		filter.Filter{Factor: filter.Tag, Value: "home"},
		filter.Filter{Factor: filter.Pinned},
	)
	if n := fs.Remove(matchFilter(filter.Filter{Factor: filter.Tag, Value: "home"})); n != 1 {
		t.Fatalf("removed %d, want 1", n)
	}
	if n := fs.Remove(matchFilter(filter.Filter{Factor: filter.Tag})); n != 1 {
		t.Fatalf("removed %d, want the remaining tag", n)
	}
	if got := fs.Filters(); len(got) != 1 || got[0].Factor != filter.Pinned {
		t.Errorf("filters = %v", got)
	}
}

func TestWriteStructured(t *testing.T) {
	report := calendarReport{Subject: "users/1", Month: "2024-03", Total: 2}

	var buf bytes.Buffer
	if err := writeStructured(&buf, outputJSON, report); err != nil {
		t.Fatal(err)
	}
	var fromJSON calendarReport
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil || fromJSON.Total != 2 {
		t.Fatalf("json = %s, err %v", buf.String(), err)
	}

	buf.Reset()
	if err := writeStructured(&buf, outputYAML, report); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "month: 2024-03") {
		t.Errorf("yaml = %s", buf.String())
	}
	var fromYAML calendarReport
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil || fromYAML.Subject != "users/1" {
		t.Fatalf("yaml round trip: %+v, err %v", fromYAML, err)
	}

	if err := writeStructured(&buf, "xml", report); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestCalendarInputs_DaySetsMonth(t *testing.T) {
	t.Cleanup(func() { flagFilters, flagDay, flagMonth = nil, "", "" })
	flagFilters = []string{"link", "tag=work"}
	flagDay = "2024-02-29"

	filters, month, err := calendarInputs(&session{cfg: config.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	if month != "2024-02" {
		t.Errorf("month = %q, want 2024-02", month)
	}
	want := []filter.Filter{
		{Factor: filter.HasLink},
		{Factor: filter.Tag, Value: "work"},
		{Factor: filter.DisplayTime, Value: "2024-02-29"},
	}
	if filter.Key(filters) != filter.Key(want) {
		t.Errorf("filters = %v, want %v", filters, want)
	}

	flagDay = "29-02-2024"
	if _, _, err := calendarInputs(&session{cfg: config.DefaultConfig()}); err == nil {
		t.Error("malformed --day should fail")
	}
}

func TestBuildReport_ListsSelectedDay(t *testing.T) {
	ts := int64(1709287200)
	day := memos.Memo{Name: "memos/1", CreatedTs: &ts}
	orch := refresh.New()
	filters := []filter.Filter{{Factor: filter.DisplayTime, Value: dayOf(ts)}}
	req, err := orch.Trigger("users/1", monthOf(ts), filters)
	if err != nil {
		t.Fatal(err)
	}
	orch.Apply(refresh.Result{Seq: req.Seq, Memos: []memos.Memo{day}})

	r := buildReport(orch, stats.Snapshot{}, "users/1", monthOf(ts), filters, req.List.Filter)
	if r.Source != "memos" || r.Total != 1 || len(r.Memos) != 1 {
		t.Fatalf("report = %+v", r)
	}
	if r.Peak == nil || r.Peak.Count != 1 {
		t.Errorf("peak = %+v", r.Peak)
	}
	if strings.Contains(r.Expression, "display_time ==") {
		t.Errorf("day filter leaked into the expression: %s", r.Expression)
	}
}

func TestChildArgs(t *testing.T) {
	got := childArgs([]string{"daemon", "--detach", "--addr", ":9000", "--detach=true"})
	want := []string{"daemon", "--addr", ":9000", "--child"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("childArgs = %v, want %v", got, want)
	}
}

func TestPidFile(t *testing.T) {
	pf := pidFile(filepath.Join(t.TempDir(), "run", "memocald.pid"))
	if err := pf.claim(); err != nil {
		t.Fatalf("claim on a missing file: %v", err)
	}

	rec := daemonRecord{PID: os.Getpid(), Addr: "127.0.0.1:9999", StartedAt: time.Now().UTC(), Server: "http://memos"}
	if err := pf.write(rec); err != nil {
		t.Fatal(err)
	}
	if pid, err := pf.pid(); err != nil || pid != rec.PID {
		t.Fatalf("pid = %d, %v", pid, err)
	}
	got, err := pf.record()
	if err != nil || got.Addr != rec.Addr || got.Server != rec.Server {
		t.Fatalf("record = %+v, %v", got, err)
	}
	if err := pf.claim(); err == nil {
		t.Error("claim should fail while this process owns the file")
	}

	pf.remove()
	if _, err := os.Stat(string(pf)); !os.IsNotExist(err) {
		t.Errorf("pid file still present: %v", err)
	}
	if _, err := os.Stat(pf.recordPath()); !os.IsNotExist(err) {
		t.Errorf("record still present: %v", err)
	}
}

func TestPidFile_RejectsGarbage(t *testing.T) {
	pf := pidFile(filepath.Join(t.TempDir(), "memocald.pid"))
	if err := os.WriteFile(string(pf), []byte("not-a-pid\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := pf.pid(); err == nil {
		t.Error("garbage pid should fail")
	}
	if err := pf.claim(); err == nil {
		t.Error("claim should surface the bad pid file")
	}
}

func dayOf(ts int64) string { return pipeline.DayKey(ts) }

func monthOf(ts int64) string { return pipeline.DayKey(ts)[:7] }
