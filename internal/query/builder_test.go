package query

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/memos"
)

const marchBase = `creator_id == 42 && display_time >= "2024-03-01T00:00:00.000Z" && display_time <= "2024-03-31T23:59:59.999Z"`

var utc = Builder{Location: time.UTC}

func mustBuild(t *testing.T, b Builder, subject, month string, filters []filter.Filter) string {
	t.Helper()
	got, err := b.Build(subject, month, filters)
	if err != nil {
		t.Fatalf("Build(%q, %q): %v", subject, month, err)
	}
	return got
}

func TestBuild_NoFilters(t *testing.T) {
	if got := mustBuild(t, utc, "users/42", "2024-03", nil); got != marchBase {
		t.Errorf("got  %s\nwant %s", got, marchBase)
	}
}

func TestBuild_PinnedAndTag(t *testing.T) {
	got := mustBuild(t, utc, "users/42", "2024-03", []filter.Filter{
		{Factor: filter.Pinned},
		{Factor: filter.Tag, Value: "work"},
	})
	if want := marchBase + ` && pinned == true && tag == "work"`; got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestBuild_EveryFactor(t *testing.T) {
	got := mustBuild(t, utc, "users/42", "2024-03", []filter.Filter{
		{Factor: filter.HasTaskList},
		{Factor: "visibility", Value: "PUBLIC"},
		{Factor: filter.HasLink},
		{Factor: filter.Tags, Value: ""},
		{Factor: filter.DisplayTime, Value: "2024-03-05"},
		{Factor: filter.HasCode},
		{Factor: filter.Tags, Value: `say "hi"`},
	})
	want := marchBase + ` && has_task_list == true && has_link == true && has_code == true && tag == "say \"hi\""`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestBuild_DisplayTimeNeverAddsClause(t *testing.T) {
	got := mustBuild(t, utc, "users/42", "2024-03", []filter.Filter{
		{Factor: filter.DisplayTime, Value: "2024-03-05"},
	})
	if got != marchBase || strings.Contains(got, "2024-03-05") {
		t.Errorf("day leaked into the expression: %s", got)
	}
}

func TestBuild_UnknownFactorsOnly(t *testing.T) {
	got := mustBuild(t, utc, "users/42", "2024-03", []filter.Filter{
		{Factor: "mood"}, {Factor: ""}, {Factor: "PINNED"},
	})
	if got != marchBase {
		t.Errorf("got %s", got)
	}
}

func TestBuild_DeterministicByValue(t *testing.T) {
	a := []filter.Filter{{Factor: filter.Pinned}, {Factor: filter.Tag, Value: "x"}}
	b := append([]filter.Filter(nil), a...)

	first := mustBuild(t, utc, "users/7", "2023-12", a)
	second := mustBuild(t, utc, "users/7", "2023-12", b)
	if first != second {
		t.Errorf("equal inputs built %q and %q", first, second)
	}
	prefix := `creator_id == 7 && display_time >= "2023-12-01T00:00:00.000Z" && display_time <= "2023-12-31T23:59:59.999Z"`
	if !strings.HasPrefix(first, prefix) {
		t.Errorf("got %s", first)
	}
}

func TestBuild_InvalidSubject(t *testing.T) {
	for _, subject := range []string{"", "users/", "users/abc", "memos/1"} {
		if _, err := utc.Build(subject, "2024-03", nil); !errors.Is(err, memos.ErrInvalidSubject) {
			t.Errorf("subject %q: err = %v, want ErrInvalidSubject", subject, err)
		}
	}
}

func TestBuild_InvalidMonth(t *testing.T) {
	if _, err := utc.Build("users/42", "2024-13", nil); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("err = %v, want ErrInvalidMonth", err)
	}
}

func TestBuild_LocalWindowRenderedInUTC(t *testing.T) {
	b := Builder{Location: time.FixedZone("UTC+8", 8*3600)}
	got := mustBuild(t, b, "users/42", "2024-03", nil)
	want := `creator_id == 42 && display_time >= "2024-02-29T16:00:00.000Z" && display_time <= "2024-03-31T15:59:59.999Z"`
	if got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestClause(t *testing.T) {
	if c, ok := Clause(filter.Filter{Factor: filter.Pinned}); !ok || c != "pinned == true" {
		t.Errorf("Clause(pinned) = %q, %v", c, ok)
	}
	if c, ok := Clause(filter.Filter{Factor: filter.Tag}); ok {
		t.Errorf("Clause(tag without value) = %q", c)
	}
}
