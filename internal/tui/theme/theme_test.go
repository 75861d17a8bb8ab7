package theme

import "testing"

func TestByNameFallsBackToDefault(t *testing.T) {
	if got := ByName("tokyo-night").Name; got != "tokyo-night" {
		t.Errorf("ByName(tokyo-night) = %q", got)
	}
	if got := ByName("nope").Name; got != FlexokiDark.Name {
		t.Errorf("unknown theme should fall back, got %q", got)
	}
}

func TestNextCycles(t *testing.T) {
	names := Names()
	for i, name := range names {
		want := names[(i+1)%len(names)]
		if got := Next(name).Name; got != want {
			t.Errorf("Next(%s) = %s, want %s", name, got, want)
		}
	}
}

func TestHeatColorIsClamped(t *testing.T) {
	th := FlexokiDark
	if th.HeatColor(-1) != th.HeatColor(0) {
		t.Error("negative levels should shade as empty")
	}
	if th.HeatColor(9) != th.Heat[HeatShades-1] {
		t.Error("levels past the top should use the brightest shade")
	}
	if th.HeatColor(0) == th.HeatColor(4) {
		t.Error("empty and busiest days must differ")
	}
}

func TestEveryThemeHasDistinctHeatEnds(t *testing.T) {
	for _, th := range All {
		if th.Heat[0] == "" || th.Heat[HeatShades-1] == "" {
			t.Errorf("%s: heat scale incomplete", th.Name)
		}
		if th.Heat[0] == th.Heat[HeatShades-1] {
			t.Errorf("%s: empty and busiest shades match", th.Name)
		}
	}
}
