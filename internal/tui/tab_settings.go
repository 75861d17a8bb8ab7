package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/memocal/internal/config"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/tui/components"
	"github.com/theirongolddev/memocal/internal/tui/theme"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	settingsFieldServer = iota
	settingsFieldToken
	settingsFieldUser
	settingsFieldTheme
	settingsFieldAutoRefresh
	settingsFieldRefreshInterval
	settingsFieldTimezone
	settingsFieldCount // sentinel
)

// settingsState tracks the settings tab state.
type settingsState struct {
	cursor  int
	editing bool
	input   textinput.Model
	saved   bool  // flash "saved" message briefly
	saveErr error // non-nil if last save failed
}

func newSettingsInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50
	return ti
}

func (a *App) settingsKey(key string) (tea.Cmd, bool) {
	switch key {
	case "j", "down":
		a.settings.cursor = min(a.settings.cursor+1, settingsFieldCount-1)
	case "k", "up":
		a.settings.cursor = max(a.settings.cursor-1, 0)
	case "enter":
		return a.settingsStartEdit(), true
	default:
		return nil, false
	}
	return nil, true
}

// settingsStartEdit opens the text input for the field under the cursor.
// Theme and auto-refresh flip in place instead.
func (a *App) settingsStartEdit() tea.Cmd {
	a.settings.saved = false

	switch a.settings.cursor {
	case settingsFieldTheme:
		a.cfg.Appearance.Theme = theme.Next(theme.Active.Name).Name
		theme.SetActive(a.cfg.Appearance.Theme)
		a.settingsPersist()
		return nil
	case settingsFieldAutoRefresh:
		a.autoRefresh = !a.autoRefresh
		a.cfg.TUI.AutoRefresh = a.autoRefresh
		a.settingsPersist()
		return nil
	}

	ti := newSettingsInput()
	switch a.settings.cursor {
	case settingsFieldServer:
		ti.Placeholder = "https://memos.example.com"
		ti.SetValue(a.cfg.Server.URL)
	case settingsFieldToken:
		ti.Placeholder = "access token"
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
		ti.SetValue(a.cfg.Server.Token)
	case settingsFieldUser:
		ti.Placeholder = "users/1 (empty: token's account)"
		ti.SetValue(a.cfg.Server.User)
	case settingsFieldRefreshInterval:
		ti.Placeholder = "60 (seconds, minimum 10)"
		ti.SetValue(strconv.Itoa(int(a.refreshInterval.Seconds())))
	case settingsFieldTimezone:
		ti.Placeholder = "Europe/Berlin (empty: local)"
		ti.SetValue(a.cfg.General.Timezone)
	}

	ti.Focus()
	a.settings.input = ti
	a.settings.editing = true
	return ti.Cursor.BlinkCmd()
}

func (a App) updateSettingsInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		cmd := a.settingsSave()
		a.settings.editing = false
		return a, cmd
	case "esc":
		a.settings.editing = false
		return a, nil
	}

	var cmd tea.Cmd
	a.settings.input, cmd = a.settings.input.Update(msg)
	return a, cmd
}

// settingsSave applies the edited value. Changing the connection
// reconnects and resolves the subject again.
func (a *App) settingsSave() tea.Cmd {
	val := strings.TrimSpace(a.settings.input.Value())
	reconnect := false

	switch a.settings.cursor {
	case settingsFieldServer:
		if err := ValidateServerURL(val); err != nil {
			a.settings.saveErr = err
			a.settings.saved = false
			return nil
		}
		a.cfg.Server.URL = strings.TrimRight(val, "/")
		reconnect = true
	case settingsFieldToken:
		a.cfg.Server.Token = val
		reconnect = true
	case settingsFieldUser:
		if err := validateUser(val); err != nil {
			a.settings.saveErr = err
			a.settings.saved = false
			return nil
		}
		a.cfg.Server.User = memos.NormalizeUserName(val)
		a.requested = a.cfg.Server.User
		reconnect = true
	case settingsFieldRefreshInterval:
		n, err := strconv.Atoi(val)
		if err != nil || n < 10 {
			a.settings.saveErr = errors.New("interval must be a number of seconds, at least 10")
			a.settings.saved = false
			return nil
		}
		a.cfg.TUI.RefreshInterval = n
		a.refreshInterval = time.Duration(n) * time.Second
	case settingsFieldTimezone:
		if val != "" {
			if _, err := time.LoadLocation(val); err != nil {
				a.settings.saveErr = fmt.Errorf("unknown timezone %q", val)
				a.settings.saved = false
				return nil
			}
		}
		// The month window picks this up on the next start.
		a.cfg.General.Timezone = val
	}

	a.settingsPersist()
	if !reconnect {
		return nil
	}

	a.connect()
	a.subject = ""
	a.resolveErr = nil
	a.orch.Reset()
	if a.client == nil {
		return nil
	}
	return resolveUserCmd(a.client, a.requested)
}

func (a *App) settingsPersist() {
	a.settings.saveErr = config.Save(a.cfg)
	a.settings.saved = a.settings.saveErr == nil
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)
	selectedLabelStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.SurfaceBright).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.GreenBright).Background(t.Surface)
	markerStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceBright)

	orUnset := func(s string) string {
		if s == "" {
			return "(not set)"
		}
		return s
	}
	user := a.cfg.Server.User
	if user == "" {
		user = "(token's account)"
	}
	tz := a.cfg.General.Timezone
	if tz == "" {
		tz = "(local)"
	}

	fields := []struct{ label, value string }{
		{"Server URL", orUnset(a.cfg.Server.URL)},
		{"Access Token", orUnset(config.MaskToken(a.cfg.Server.Token))},
		{"User", user},
		{"Theme", theme.Active.Name},
		{"Auto Refresh", strconv.FormatBool(a.autoRefresh)},
		{"Refresh Interval", fmt.Sprintf("%ds", int(a.refreshInterval.Seconds()))},
		{"Timezone", tz},
	}

	innerW := components.CardInnerWidth(cw)

	var formBody strings.Builder
	for i, f := range fields {
		if a.settings.editing && i == a.settings.cursor {
			formBody.WriteString(markerStyle.Render("▸ "))
			formBody.WriteString(accentStyle.Render(fmt.Sprintf("%-18s ", f.label)))
			formBody.WriteString(a.settings.input.View())
			formBody.WriteString("\n")
			continue
		}

		if i == a.settings.cursor {
			marker := markerStyle.Render("▸ ")
			label := selectedLabelStyle.Render(fmt.Sprintf("%-18s ", f.label+":"))
			value := selectedStyle.Render(f.value)
			formBody.WriteString(marker + label + value)
			if pad := innerW - lipgloss.Width(marker) - lipgloss.Width(label) - lipgloss.Width(value); pad > 0 {
				formBody.WriteString(lipgloss.NewStyle().Background(t.SurfaceBright).Render(strings.Repeat(" ", pad)))
			}
		} else {
			formBody.WriteString(lipgloss.NewStyle().Background(t.Surface).Render("  "))
			formBody.WriteString(labelStyle.Render(fmt.Sprintf("%-18s ", f.label+":")))
			formBody.WriteString(valueStyle.Render(f.value))
		}
		formBody.WriteString("\n")
	}

	if a.settings.saveErr != nil {
		warnStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		formBody.WriteString("\n")
		formBody.WriteString(warnStyle.Render(fmt.Sprintf("Save failed: %s", a.settings.saveErr)))
	} else if a.settings.saved {
		formBody.WriteString("\n")
		formBody.WriteString(greenStyle.Render("Saved!"))
	}

	formBody.WriteString("\n")
	formBody.WriteString(labelStyle.Render("[j/k] navigate  [Enter] edit/toggle  [Esc] cancel"))

	var infoBody strings.Builder
	infoBody.WriteString(labelStyle.Render("Subject:       ") + valueStyle.Render(orUnset(a.subject)) + "\n")
	infoBody.WriteString(labelStyle.Render("Memo fetches:  ") + valueStyle.Render(strconv.FormatUint(a.orch.Seq(), 10)) + "\n")
	infoBody.WriteString(labelStyle.Render("Fetch state:   ") + valueStyle.Render(a.orch.State().String()) + "\n")
	infoBody.WriteString(labelStyle.Render("Config file:   ") + valueStyle.Render(config.Path()))

	return components.ContentCard("Settings", formBody.String(), cw) + "\n" +
		components.ContentCard("Connection", infoBody.String(), cw)
}
