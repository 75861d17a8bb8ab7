// Package tui provides the interactive Bubble Tea dashboard for memocal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/memocal/internal/cli"
	"github.com/theirongolddev/memocal/internal/config"
	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/pipeline"
	"github.com/theirongolddev/memocal/internal/refresh"
	"github.com/theirongolddev/memocal/internal/stats"
	"github.com/theirongolddev/memocal/internal/store"
	"github.com/theirongolddev/memocal/internal/tui/components"
	"github.com/theirongolddev/memocal/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Options configures the dashboard.
type Options struct {
	Config config.Config
	// Cache persists snapshots and the filter set. Optional.
	Cache *store.Cache
	// Connect builds a client from the configuration; nil means the
	// server is not configured yet.
	Connect func(config.Config) *memos.Client
	// Subject is the user resource name; empty resolves the token's account.
	Subject string
	// Month is the visible month as YYYY-MM; empty means the current month.
	Month   string
	Filters *filter.Store
}

// userResolvedMsg carries the subject whose calendar is shown.
type userResolvedMsg struct {
	subject string
	err     error
}

// statsLoadedMsg is sent when the statistics snapshot load completes.
type statsLoadedMsg struct {
	snapshot stats.Snapshot
	err      error
}

// memosLoadedMsg carries a finished memo list fetch, tagged with its sequence.
type memosLoadedMsg struct {
	result refresh.Result
}

// filtersChangedMsg is sent after the filter store notifies a change.
type filtersChangedMsg struct{}

type tickMsg struct{}

const (
	tabCalendar = iota
	tabMemos
	tabSettings
)

// App is the root Bubble Tea model.
type App struct {
	cfg       config.Config
	connectFn func(config.Config) *memos.Client
	client    *memos.Client
	cache     *store.Cache

	// What is shown
	subject    string
	requested  string // subject as given on the command line
	month      string
	cursor     string // day under the keyboard cursor
	loaded     bool
	resolveErr error

	filters      *filter.Store
	filterEvents chan struct{}
	orch         *refresh.Orchestrator
	triggerErr   error

	snapshot     stats.Snapshot
	statsErr     error
	statsLoading bool

	// Auto-refresh state
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time
	refreshing      bool

	// UI state
	width      int
	height     int
	activeTab  int
	showHelp   bool
	memoScroll int
	settings   settingsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals SetupValues
	needSetup bool

	spinner spinner.Model
}

const (
	minTerminalWidth = 80
	maxContentWidth  = 140
	minContentHeight = 5
	headerHeight     = 2 // tab bar + filter row

	fetchTimeout = 30 * time.Second
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	month := opts.Month
	if month == "" {
		month = pipeline.CurrentMonth(time.Now().In(opts.Config.Location()))
	}

	fs := opts.Filters
	if fs == nil {
		fs = filter.NewStore()
	}
	// Coalescing: the handler reads the current set, so one pending event is enough.
	events := make(chan struct{}, 1)
	fs.Subscribe(func([]filter.Filter) {
		select {
		case events <- struct{}{}:
		default:
		}
	})

	a := App{
		cfg:             opts.Config,
		connectFn:       opts.Connect,
		cache:           opts.Cache,
		requested:       opts.Subject,
		month:           month,
		cursor:          defaultCursor(month, time.Now().In(opts.Config.Location())),
		filters:         fs,
		filterEvents:    events,
		orch:            refresh.New(refresh.WithPageSize(opts.Config.General.PageSize), refresh.WithLocation(opts.Config.Location())),
		autoRefresh:     opts.Config.TUI.AutoRefresh,
		refreshInterval: opts.Config.RefreshInterval(),
		spinner:         sp,
	}
	a.connect()

	if a.client == nil {
		a.needSetup = true
		a.setupVals = SetupValuesFrom(a.cfg)
		a.setupForm = NewSetupForm(&a.setupVals)
	}
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		a.spinner.Tick,
		tickCmd(),
		waitForFilterChange(a.filterEvents),
	}
	if a.needSetup {
		cmds = append(cmds, a.setupForm.Init())
	} else {
		cmds = append(cmds, resolveUserCmd(a.client, a.requested))
	}
	return tea.Batch(cmds...)
}

func (a *App) connect() {
	a.client = nil
	if a.connectFn != nil {
		a.client = a.connectFn(a.cfg)
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		return a.updateMouse(msg)

	case tea.KeyMsg:
		return a.updateKey(msg)

	case userResolvedMsg:
		a.loaded = true
		a.lastRefresh = time.Now()
		if msg.err != nil {
			a.resolveErr = msg.err
			return a, nil
		}
		a.resolveErr = nil
		a.subject = msg.subject
		a.loadCachedSnapshot()
		statsCmd := a.loadStatsCmd()
		fetchCmd := a.retrigger()
		return a, tea.Batch(statsCmd, fetchCmd)

	case statsLoadedMsg:
		a.statsLoading = false
		a.statsErr = msg.err
		// Keep what is on screen when the failure brought nothing better.
		if msg.err == nil || msg.snapshot.Stale || a.snapshot.User == "" {
			a.snapshot = msg.snapshot
		}
		return a, nil

	case memosLoadedMsg:
		if a.orch.Apply(msg.result) {
			a.refreshing = false
			a.lastRefresh = time.Now()
			a.clampMemoScroll()
		}
		return a, nil

	case filtersChangedMsg:
		a.persistFilters()
		a.memoScroll = 0
		fetchCmd := a.retrigger()
		return a, tea.Batch(waitForFilterChange(a.filterEvents), fetchCmd)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing && !a.statsLoading &&
			time.Since(a.lastRefresh) >= a.refreshInterval {
			cmds = append(cmds, a.refreshAll())
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global: quit
	if key == "ctrl+c" {
		return a, tea.Quit
	}

	// First-run setup wizard intercepts all keys
	if a.needSetup && a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	if !a.loaded {
		if key == "q" {
			return a, tea.Quit
		}
		return a, nil
	}

	// Settings tab has its own keybindings (text input)
	if a.activeTab == tabSettings && a.settings.editing {
		return a.updateSettingsInput(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	var (
		cmd     tea.Cmd
		handled bool
	)
	switch a.activeTab {
	case tabCalendar:
		cmd, handled = a.calendarKey(key)
	case tabMemos:
		handled = a.memosKey(key)
	case tabSettings:
		cmd, handled = a.settingsKey(key)
	}
	if handled {
		return a, cmd
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if !a.refreshing && !a.statsLoading {
			cmd := a.refreshAll()
			return a, cmd
		}
	case "R":
		a.autoRefresh = !a.autoRefresh
		a.cfg.TUI.AutoRefresh = a.autoRefresh
		_ = config.Save(a.cfg) // best-effort
	case "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	case "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	default:
		if r := []rune(key); len(r) == 1 {
			if idx := components.TabIdxByKey(r[0]); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

func (a App) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !a.loaded || a.showHelp || a.needSetup {
		return a, nil
	}
	if msg.Action != tea.MouseActionPress {
		return a, nil
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if a.activeTab == tabMemos && a.memoScroll > 0 {
			a.memoScroll--
		}
	case tea.MouseButtonWheelDown:
		if a.activeTab == tabMemos {
			a.memoScroll++
			a.clampMemoScroll()
		}
	case tea.MouseButtonLeft:
		if msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
			return a, nil
		}
		if a.activeTab != tabCalendar {
			return a, nil
		}
		if f, ok := a.counterAt(msg.X, msg.Y); ok {
			filter.Toggle(a.filters, f, "")
			return a, nil
		}
		if day := a.dayAt(msg.X, msg.Y); day != "" {
			a.cursor = day
			filter.SelectDay(a.filters, day)
		}
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.settings.saveErr = a.saveSetupConfig()
		a.setupForm = nil
		if a.client == nil {
			// Still unusable; ask again.
			a.setupForm = NewSetupForm(&a.setupVals)
			return a, a.setupForm.Init()
		}
		a.needSetup = false
		return a, resolveUserCmd(a.client, a.requested)
	case huh.StateAborted:
		return a, tea.Quit
	}

	return a, cmd
}

// retrigger hands the current inputs to the orchestrator and starts a
// fetch when it issues one.
func (a *App) retrigger() tea.Cmd {
	if a.client == nil || !a.loaded || a.resolveErr != nil {
		return nil
	}
	req, err := a.orch.Trigger(a.subject, a.month, a.filters.Filters())
	if err != nil {
		a.triggerErr = err
		return nil
	}
	a.triggerErr = nil
	if req == nil {
		return nil
	}
	a.refreshing = true
	return fetchMemosCmd(a.client, req)
}

// refreshAll reloads statistics and forces a new memo fetch.
func (a *App) refreshAll() tea.Cmd {
	a.lastRefresh = time.Now()
	if a.client == nil {
		return nil
	}
	if a.subject == "" {
		return resolveUserCmd(a.client, a.requested)
	}
	a.orch.Reset()
	statsCmd := a.loadStatsCmd()
	return tea.Batch(statsCmd, a.retrigger())
}

func (a *App) loadStatsCmd() tea.Cmd {
	if a.client == nil || a.subject == "" {
		return nil
	}
	a.statsLoading = true
	client, cache, user, loc := a.client, a.statsCache(), a.subject, a.orch.Location()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		snap, err := stats.Load(ctx, client, cache, user, loc)
		return statsLoadedMsg{snapshot: snap, err: err}
	}
}

// statsCache returns the cache as a stats.Cache, nil when there is none.
func (a App) statsCache() stats.Cache {
	if a.cache == nil {
		return nil
	}
	return a.cache
}

func (a *App) loadCachedSnapshot() {
	if a.cache == nil {
		return
	}
	if s, err := a.cache.LoadSnapshot(a.subject); err == nil && s != nil {
		a.snapshot = *s
		a.snapshot.Stale = true
	}
}

func (a *App) persistFilters() {
	if a.cache == nil {
		return
	}
	_ = a.cache.SaveFilters(a.filters.Filters()) // best-effort
}

// calendarData is what the month grid shades: the fetched memo list when
// one is stored, the account statistics otherwise.
func (a App) calendarData() map[string]int {
	return a.orch.CalendarData(a.snapshot.ActivityByDay)
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// contentOffset is the left margin when content is centered.
func (a App) contentOffset() int {
	return max((a.width-a.contentWidth())/2, 0)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}

	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}

	if a.needSetup && a.setupForm != nil {
		return a.setupForm.View()
	}

	if !a.loaded {
		return a.viewLoading()
	}

	if a.showHelp {
		return a.viewHelp()
	}

	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)

	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  memocal needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)

	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.Surface).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	spinnerStyle := lipgloss.NewStyle().
		Foreground(t.Accent).
		Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ memocal"))
	b.WriteString(subtitleStyle.Render(" · Memos activity calendar"))
	b.WriteString("\n\n")
	b.WriteString(spinnerStyle.Render(a.spinner.View()))
	b.WriteString(subtitleStyle.Render(" Connecting to " + a.cfg.Server.URL + "..."))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings [][2]string
	}{
		{"Calendar", [][2]string{
			{"h j k l", "Move day cursor"},
			{"[ ]", "Previous / Next month"},
			{"t", "Jump to today"},
			{"Enter", "Filter by the cursor day"},
			{"Esc", "Clear the day filter"},
			{"1 2 3 4", "Toggle Pinned / Links / To-do / Code"},
			{"x", "Clear all filters"},
		}},
		{"General", [][2]string{
			{"Tab C M S", "Switch tab"},
			{"r", "Refresh now"},
			{"R", "Toggle auto-refresh"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	for _, s := range sections {
		b.WriteString("\n\n")
		b.WriteString(sectionStyle.Render(s.title))
		for _, bind := range s.bindings {
			fmt.Fprintf(&b, "\n  %s  %s",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Mouse: click a counter to toggle it, a day to select it"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	// 1. Header: tab bar + subject, month and filter pills
	header := components.RenderTabBar(a.activeTab, w) + "\n" + a.renderFilterRow(w)

	// 2. Status bar
	statusBar := components.RenderStatusBar(w, components.StatusInfo{
		State:       a.statusText(),
		DataAge:     a.dataAge(),
		Refreshing:  a.refreshing || a.statsLoading,
		AutoRefresh: a.autoRefresh,
	})

	// 3. Content zone height
	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabCalendar:
		content = a.renderCalendarTab(cw)
	case tabMemos:
		content = a.renderMemosTab(cw, contentH)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)

	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) renderFilterRow(w int) string {
	t := theme.Active

	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	pillStyle := lipgloss.NewStyle().Foreground(t.Orange).Background(t.SurfaceHover)

	subject := a.subject
	if subject == "" {
		subject = "?"
	}
	row := dimStyle.Render(" ") + accentStyle.Render(subject) +
		dimStyle.Render(" │ ") + accentStyle.Render(cli.FormatMonth(a.month))

	for _, f := range a.filters.Filters() {
		row += dimStyle.Render(" ") + pillStyle.Render(" "+f.Label()+" ")
	}

	return lipgloss.NewStyle().Background(t.Surface).Width(w).Render(row)
}

// statusText describes where the calendar data came from.
func (a App) statusText() string {
	switch {
	case a.resolveErr != nil:
		return "error: " + a.resolveErr.Error()
	case a.triggerErr != nil:
		return "error: " + a.triggerErr.Error()
	case a.refreshing:
		return "loading"
	}

	switch a.orch.State() {
	case refresh.Fallback:
		return "fallback: " + a.orch.Err().Error()
	case refresh.Populated:
		if len(a.filters.Filters()) > 0 {
			return "filtered"
		}
		return "all memos"
	}
	if a.snapshot.Stale {
		return "cached stats"
	}
	return ""
}

func (a App) dataAge() string {
	at := a.orch.AppliedAt()
	if at.IsZero() {
		at = a.snapshot.FetchedAt
	}
	if at.IsZero() {
		return ""
	}
	return cli.FormatAgo(at)
}

// ─── Helpers ────────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// waitForFilterChange blocks until the filter store reports a change.
func waitForFilterChange(events <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-events
		return filtersChangedMsg{}
	}
}

// resolveUserCmd settles the subject: the configured one, or the token's
// own account.
func resolveUserCmd(client *memos.Client, subject string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		name, err := memos.ResolveSubject(ctx, client, subject)
		return userResolvedMsg{subject: name, err: err}
	}
}

// fetchMemosCmd runs one memo list request off the update loop.
func fetchMemosCmd(client *memos.Client, req *refresh.Request) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		return memosLoadedMsg{result: refresh.Fetch(ctx, client, req)}
	}
}

func defaultCursor(month string, now time.Time) string {
	if pipeline.CurrentMonth(now) == month {
		return now.Format(pipeline.DayLayout)
	}
	return month + "-01"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // one-column separator
	}
	return -1
}
