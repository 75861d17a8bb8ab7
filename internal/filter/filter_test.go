package filter

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Filter
	}{
		{"pinned", Filter{Factor: Pinned}},
		{"link", Filter{Factor: HasLink}},
		{"code", Filter{Factor: HasCode}},
		{"todo", Filter{Factor: HasTaskList}},
		{"has-link", Filter{Factor: HasLink}},
		{"has-code", Filter{Factor: HasCode}},
		{"has-task-list", Filter{Factor: HasTaskList}},
		{"display-time=2024-03-05", Filter{Factor: DisplayTime, Value: "2024-03-05"}},
		{"tag=work", Filter{Factor: Tag, Value: "work"}},
		{" tag = a=b ", Filter{Factor: Tag, Value: "a=b"}},
		{"day=2024-03-05", Filter{Factor: DisplayTime, Value: "2024-03-05"}},
		{"property.hasCode", Filter{Factor: HasCode}},
		{"visibility=PUBLIC", Filter{Factor: "visibility", Value: "PUBLIC"}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}

	if _, err := Parse("=value"); !errors.Is(err, ErrEmptyFactor) {
		t.Errorf("Parse(=value) err = %v, want ErrEmptyFactor", err)
	}
}

func TestKey_ByValue(t *testing.T) {
	a := []Filter{{Factor: Pinned}, {Factor: Tag, Value: "work"}}
	b := []Filter{{Factor: Pinned}, {Factor: Tag, Value: "work"}}

	if Key(a) != Key(b) {
		t.Error("equal content should share a key")
	}
	if Key(a) == Key([]Filter{{Factor: Tag, Value: "work"}, {Factor: Pinned}}) {
		t.Error("order should change the key")
	}
	if Key(a) == Key(a[:1]) {
		t.Error("a prefix should not share the key")
	}
	if Key(nil) != "" || Key([]Filter{}) != "" {
		t.Errorf("empty keys = %q, %q", Key(nil), Key([]Filter{}))
	}
}

func TestKey_NoSeparatorCollisions(t *testing.T) {
	one := []Filter{{Factor: Tag, Value: `a","b`}}
	two := []Filter{{Factor: Tag, Value: "a"}, {Factor: "b"}}
	if Key(one) == Key(two) {
		t.Errorf("keys collide: %s", Key(one))
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		f    Filter
		want string
	}{
		{Filter{Factor: Pinned}, "Pinned"},
		{Filter{Factor: Tags, Value: "work"}, "#work"},
		{Filter{Factor: DisplayTime, Value: "2024-03-05"}, "Day 2024-03-05"},
		{Filter{Factor: "mood", Value: "ok"}, "mood=ok"},
	}
	for _, tt := range tests {
		if got := tt.f.Label(); got != tt.want {
			t.Errorf("%+v.Label() = %q, want %q", tt.f, got, tt.want)
		}
	}
}

func TestSelectedDay(t *testing.T) {
	if got := SelectedDay(nil); got != "" {
		t.Errorf("SelectedDay(nil) = %q", got)
	}
	got := SelectedDay([]Filter{{Factor: Pinned}, {Factor: DisplayTime, Value: "2024-03-05"}})
	if got != "2024-03-05" {
		t.Errorf("SelectedDay = %q, want 2024-03-05", got)
	}
}
