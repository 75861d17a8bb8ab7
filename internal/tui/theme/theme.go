// Package theme defines color themes for the memocal dashboard.
package theme

import "github.com/charmbracelet/lipgloss"

// HeatShades is the number of calendar cell shades, empty day included.
const HeatShades = 5

// Theme defines the color roles used throughout the TUI.
type Theme struct {
	Name string

	Background    lipgloss.Color // app background
	Surface       lipgloss.Color // cards and panels
	SurfaceHover  lipgloss.Color // active tab, selected row
	SurfaceBright lipgloss.Color
	Border        lipgloss.Color
	BorderAccent  lipgloss.Color // focused card

	TextDim     lipgloss.Color // hints
	TextMuted   lipgloss.Color // labels
	TextPrimary lipgloss.Color

	Accent       lipgloss.Color
	AccentBright lipgloss.Color
	AccentDim    lipgloss.Color

	// Status and counter colors.
	Green       lipgloss.Color
	GreenBright lipgloss.Color
	Orange      lipgloss.Color
	Red         lipgloss.Color
	Yellow      lipgloss.Color
	Cyan        lipgloss.Color

	// Heat shades calendar days from empty to the month's busiest day.
	Heat [HeatShades]lipgloss.Color
}

// Active is the currently selected theme.
var Active = FlexokiDark

// FlexokiDark is the default: warm, paper-like dark tones.
var FlexokiDark = Theme{
	Name:       "flexoki-dark",
	Background: "#100F0F", Surface: "#1C1B1A", SurfaceHover: "#282726", SurfaceBright: "#343331",
	Border: "#403E3C", BorderAccent: "#3AA99F",
	TextDim: "#575653", TextMuted: "#878580", TextPrimary: "#FFFCF0",
	Accent: "#3AA99F", AccentBright: "#5BC8BE", AccentDim: "#1A3533",
	Green: "#879A39", GreenBright: "#A3B859", Orange: "#DA702C", Red: "#D14D41", Yellow: "#D0A215", Cyan: "#24837B",
	Heat: [HeatShades]lipgloss.Color{"#282726", "#1A3533", "#24837B", "#3AA99F", "#5BC8BE"},
}

// CatppuccinMocha is a soft pastel theme.
var CatppuccinMocha = Theme{
	Name:       "catppuccin-mocha",
	Background: "#1E1E2E", Surface: "#313244", SurfaceHover: "#45475A", SurfaceBright: "#585B70",
	Border: "#585B70", BorderAccent: "#89B4FA",
	TextDim: "#6C7086", TextMuted: "#A6ADC8", TextPrimary: "#CDD6F4",
	Accent: "#89B4FA", AccentBright: "#B4D0FB", AccentDim: "#293147",
	Green: "#A6E3A1", GreenBright: "#C6F6C1", Orange: "#FAB387", Red: "#F38BA8", Yellow: "#F9E2AF", Cyan: "#94E2D5",
	Heat: [HeatShades]lipgloss.Color{"#45475A", "#2F4A3A", "#4C7A55", "#7DBF7A", "#A6E3A1"},
}

// TokyoNight is a cool blue theme.
var TokyoNight = Theme{
	Name:       "tokyo-night",
	Background: "#1A1B26", Surface: "#24283B", SurfaceHover: "#343A52", SurfaceBright: "#414868",
	Border: "#565F89", BorderAccent: "#7AA2F7",
	TextDim: "#565F89", TextMuted: "#A9B1D6", TextPrimary: "#C0CAF5",
	Accent: "#7AA2F7", AccentBright: "#A9C1FF", AccentDim: "#252B3F",
	Green: "#9ECE6A", GreenBright: "#B9E87A", Orange: "#FF9E64", Red: "#F7768E", Yellow: "#E0AF68", Cyan: "#7DCFFF",
	Heat: [HeatShades]lipgloss.Color{"#343A52", "#2A3A5C", "#3D59A1", "#7AA2F7", "#A9C1FF"},
}

// Terminal sticks to the 16 ANSI colors.
var Terminal = Theme{
	Name:       "terminal",
	Background: "0", Surface: "0", SurfaceHover: "8", SurfaceBright: "8",
	Border: "8", BorderAccent: "6",
	TextDim: "8", TextMuted: "7", TextPrimary: "15",
	Accent: "6", AccentBright: "14", AccentDim: "0",
	Green: "2", GreenBright: "10", Orange: "3", Red: "1", Yellow: "3", Cyan: "6",
	Heat: [HeatShades]lipgloss.Color{"8", "4", "2", "10", "14"},
}

// All available themes.
var All = []Theme{FlexokiDark, CatppuccinMocha, TokyoNight, Terminal}

// ByName returns a theme by its name, defaulting to FlexokiDark.
func ByName(name string) Theme {
	for _, t := range All {
		if t.Name == name {
			return t
		}
	}
	return FlexokiDark
}

// Names lists the theme names in cycling order.
func Names() []string {
	names := make([]string, len(All))
	for i, t := range All {
		names[i] = t.Name
	}
	return names
}

// Next returns the theme after name, wrapping around.
func Next(name string) Theme {
	for i, t := range All {
		if t.Name == name {
			return All[(i+1)%len(All)]
		}
	}
	return All[0]
}

// SetActive sets the active theme by name.
func SetActive(name string) {
	Active = ByName(name)
}

// HeatColor shades a calendar cell. Level 0 is an empty day; levels past
// the top use the brightest shade.
func (t Theme) HeatColor(level int) lipgloss.Color {
	return t.Heat[min(max(level, 0), HeatShades-1)]
}
