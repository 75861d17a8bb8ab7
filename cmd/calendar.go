package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/memocal/internal/cli"
	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/pipeline"
	"github.com/theirongolddev/memocal/internal/refresh"
	"github.com/theirongolddev/memocal/internal/stats"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	flagFilters []string
	flagDay     string
	flagOutput  string
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Print the month activity calendar",
	RunE:  runCalendar,
}

func registerCalendarFlags(c *cobra.Command) {
	c.Flags().StringArrayVarP(&flagFilters, "filter", "f", nil, "Extra filter as factor[=value] (repeatable)")
	c.Flags().StringVar(&flagDay, "day", "", "Select one day (YYYY-MM-DD) and list its memos")
	c.Flags().StringVarP(&flagOutput, "output", "o", outputTable, "Output format: table, json or yaml")
}

func init() {
	registerCalendarFlags(calendarCmd)
	rootCmd.AddCommand(calendarCmd)
}

// calendarReport is the structured form of the calendar output.
type calendarReport struct {
	Subject     string              `json:"subject" yaml:"subject"`
	Month       string              `json:"month" yaml:"month"`
	Filters     []filter.Filter     `json:"filters" yaml:"filters"`
	Expression  string              `json:"expression" yaml:"expression"`
	SelectedDay string              `json:"selectedDay,omitempty" yaml:"selectedDay,omitempty"`
	Source      string              `json:"source" yaml:"source"`
	Days        []pipeline.DayCount `json:"days" yaml:"days"`
	Total       int                 `json:"total" yaml:"total"`
	Peak        *pipeline.DayCount  `json:"peak,omitempty" yaml:"peak,omitempty"`
	Counters    pipeline.Counters   `json:"counters" yaml:"counters"`
	Memos       []memos.Memo        `json:"memos,omitempty" yaml:"memos,omitempty"`
	Warnings    []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// calendarInputs resolves the filter set and month shared by calendar and
// query: the saved filters, then --filter flags, then --day.
func calendarInputs(s *session) ([]filter.Filter, string, error) {
	extra, err := parseFilters(flagFilters)
	if err != nil {
		return nil, "", err
	}
	fs := filter.NewStore(persistedFilters(s.cache)...)
	for _, f := range extra {
		fs.Add(f)
	}

	month, err := visibleMonth(s.cfg)
	if err != nil {
		return nil, "", err
	}
	if flagDay != "" {
		day, err := time.Parse(pipeline.DayLayout, flagDay)
		if err != nil {
			return nil, "", fmt.Errorf("--day %q: want YYYY-MM-DD", flagDay)
		}
		filter.SelectDay(fs, flagDay)
		if flagMonth == "" {
			month = day.Format(pipeline.MonthLayout)
		}
	}
	return fs.Filters(), month, nil
}

func runCalendar(cmd *cobra.Command, _ []string) error {
	if err := validateOutput(flagOutput); err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	report, orch, err := loadCalendar(ctx, s)
	if err != nil {
		return err
	}
	if flagOutput != outputTable {
		return writeStructured(os.Stdout, flagOutput, report)
	}
	printCalendar(report, orch)
	return nil
}

// loadCalendar fetches statistics and the month memo list concurrently
// and reports whichever the calendar can be drawn from.
func loadCalendar(ctx context.Context, s *session) (calendarReport, *refresh.Orchestrator, error) {
	filters, month, err := calendarInputs(s)
	if err != nil {
		return calendarReport{}, nil, err
	}
	subject, err := memos.ResolveSubject(ctx, s.client, s.cfg.Server.User)
	if err != nil {
		return calendarReport{}, nil, err
	}

	orch := refresh.New(
		refresh.WithPageSize(s.cfg.General.PageSize),
		refresh.WithLocation(s.cfg.Location()),
	)
	req, err := orch.Trigger(subject, month, filters)
	if err != nil {
		return calendarReport{}, nil, err
	}

	progress("Loading %s for %s...", cli.FormatMonth(month), subject)

	var (
		snap     stats.Snapshot
		statsErr error
		res      refresh.Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, statsErr = stats.Load(gctx, s.client, s.statsCache(), subject, s.cfg.Location())
		return nil
	})
	g.Go(func() error {
		res = refresh.Fetch(gctx, s.client, req)
		return nil
	})
	_ = g.Wait() // both branches degrade instead of failing

	orch.Apply(res)
	if orch.Err() != nil && statsErr != nil && len(snap.ActivityByDay) == 0 {
		return calendarReport{}, nil, fmt.Errorf("nothing to show: %w", errors.Join(orch.Err(), statsErr))
	}

	report := buildReport(orch, snap, subject, month, filters, req.List.Filter)
	if statsErr != nil {
		report.Warnings = append(report.Warnings, "statistics: "+statsErr.Error())
	}
	if snap.Stale {
		report.Warnings = append(report.Warnings, "statistics from cache, fetched "+cli.FormatAgo(snap.FetchedAt))
	}
	return report, orch, nil
}

func buildReport(orch *refresh.Orchestrator, snap stats.Snapshot, subject, month string, filters []filter.Filter, expr string) calendarReport {
	counts := pipeline.InMonth(orch.CalendarData(snap.ActivityByDay), month)
	r := calendarReport{
		Subject:     subject,
		Month:       month,
		Filters:     filters,
		Expression:  expr,
		SelectedDay: filter.SelectedDay(filters),
		Source:      "statistics",
		Days:        pipeline.SortedDays(counts),
		Total:       pipeline.Total(counts),
		Counters:    snap.Counters(),
	}
	if r.Filters == nil {
		r.Filters = []filter.Filter{}
	}
	if day, n := pipeline.Peak(counts); n > 0 {
		r.Peak = &pipeline.DayCount{Day: day, Count: n}
	}
	if orch.HasItems() {
		r.Source = "memos"
		if r.SelectedDay != "" {
			r.Memos = orch.OnDay(r.SelectedDay)
		}
	} else if err := orch.Err(); err != nil {
		r.Warnings = append(r.Warnings, "memo list: "+err.Error()+" (showing statistics)")
	}
	return r
}

func printCalendar(r calendarReport, orch *refresh.Orchestrator) {
	counts := make(map[string]int, len(r.Days))
	for _, d := range r.Days {
		counts[d.Day] = d.Count
	}
	weeks, _ := pipeline.MonthGrid(r.Month)

	fmt.Println()
	fmt.Println(cli.RenderTitle(cli.FormatMonth(r.Month)))
	if pills := cli.RenderPills(r.Filters); pills != "" {
		fmt.Println(pills)
	}
	fmt.Println()
	fmt.Print(cli.RenderMonth(weeks, counts, r.SelectedDay))
	fmt.Println(cli.RenderLegend())
	fmt.Println()
	fmt.Println(cli.RenderCounters(r.Counters))
	fmt.Println()

	days, _ := pipeline.MonthDays(r.Month)
	series := make([]int, len(days))
	for i, d := range days {
		series[i] = counts[d]
	}
	fmt.Printf("  %s memos in %s  %s\n", cli.FormatNumber(int64(r.Total)), cli.FormatMonth(r.Month), cli.RenderSparkline(series))
	if r.Peak != nil {
		fmt.Printf("  Busiest day: %s (%d)\n", cli.FormatDay(r.Peak.Day), r.Peak.Count)
	}
	fmt.Printf("  Source: %s\n", r.Source)
	for _, w := range r.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}

	if r.SelectedDay == "" {
		return
	}
	fmt.Println()
	if !orch.HasItems() {
		fmt.Printf("  %s: %d memos (list unavailable)\n", cli.FormatDay(r.SelectedDay), counts[r.SelectedDay])
		return
	}
	if len(r.Memos) == 0 {
		fmt.Printf("  No memos on %s.\n", cli.FormatDay(r.SelectedDay))
		return
	}
	fmt.Print(cli.RenderTable(memoTable(cli.FormatDay(r.SelectedDay), r.Memos)))
}

func memoTable(title string, items []memos.Memo) cli.Table {
	items = append([]memos.Memo(nil), items...)
	sort.SliceStable(items, func(i, j int) bool {
		ti, _ := items[i].CreatedUnix()
		tj, _ := items[j].CreatedUnix()
		return ti < tj
	})

	rows := make([][]string, 0, len(items))
	for _, m := range items {
		stamp := "--"
		if ts, ok := m.CreatedUnix(); ok {
			stamp = time.Unix(ts, 0).Format("15:04")
		}
		pin := ""
		if m.Pinned {
			pin = "★"
		}
		rows = append(rows, []string{cli.Truncate(m.Content, 60), stamp, pin, cli.Truncate(tagList(m.Tags), 24)})
	}
	return cli.Table{
		Title:   title,
		Headers: []string{"Memo", "Time", "Pin", "Tags"},
		Rows:    rows,
	}
}

func tagList(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return "#" + strings.Join(tags, " #")
}
