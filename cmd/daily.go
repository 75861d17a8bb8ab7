package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/theirongolddev/memocal/internal/cli"
	"github.com/theirongolddev/memocal/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagDailyAll bool

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily memo counts for the month",
	RunE:  runDaily,
}

func init() {
	registerCalendarFlags(dailyCmd)
	dailyCmd.Flags().BoolVar(&flagDailyAll, "all", false, "Include days without memos")
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(cmd *cobra.Command, _ []string) error {
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

	report, _, err := loadCalendar(ctx, s)
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(report.Days))
	for _, d := range report.Days {
		counts[d.Day] = d.Count
	}
	days, _ := pipeline.MonthDays(report.Month)
	list := make([]pipeline.DayCount, 0, len(days))
	for _, d := range days {
		if counts[d] > 0 || flagDailyAll {
			list = append(list, pipeline.DayCount{Day: d, Count: counts[d]})
		}
	}

	if flagOutput != outputTable {
		return writeStructured(os.Stdout, flagOutput, list)
	}
	if len(list) == 0 {
		fmt.Println("\n  No memos in the selected month.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("DAILY  " + cli.FormatMonth(report.Month)))
	if pills := cli.RenderPills(report.Filters); pills != "" {
		fmt.Println(pills)
	}
	fmt.Println()

	peak := 0
	if report.Peak != nil {
		peak = report.Peak.Count
	}
	rows := make([][]string, 0, len(list))
	for _, d := range list {
		date, _ := time.Parse(pipeline.DayLayout, d.Day)
		rows = append(rows, []string{
			d.Day,
			cli.FormatDayOfWeek(int(date.Weekday())),
			cli.FormatNumber(int64(d.Count)),
			cli.RenderHorizontalBar("", d.Count, peak, 30),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Memos", ""},
		Rows:    rows,
	}))
	fmt.Printf("  Source: %s\n", report.Source)
	for _, w := range report.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}

	return nil
}
