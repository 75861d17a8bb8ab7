package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/theirongolddev/memocal/internal/cli"
	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/pipeline"
	"github.com/theirongolddev/memocal/internal/query"
	"github.com/theirongolddev/memocal/internal/store"

	"github.com/spf13/cobra"
)

var errFilterCache = errors.New("the saved filter set lives in the cache; drop --no-cache")

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Show or edit the saved filter set",
	Long: "The saved filter set narrows `memocal calendar`, the TUI and the daemon.\n" +
		"Filters are written as factor[=value], e.g. pinned, link, todo, code, tag=work.",
	RunE: runFilterList,
}

func init() {
	filterCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the saved filters",
			Args:  cobra.NoArgs,
			RunE:  runFilterList,
		},
		&cobra.Command{
			Use:   "add FILTER...",
			Short: "Add filters",
			Args:  cobra.MinimumNArgs(1),
			RunE: editFilters(func(fs *filter.Store, args []string) error {
				parsed, err := parseFilters(args)
				if err != nil {
					return err
				}
				for _, f := range parsed {
					fs.Add(f)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "remove FILTER...",
			Short: "Remove filters; without a value every filter of that factor goes",
			Args:  cobra.MinimumNArgs(1),
			RunE: editFilters(func(fs *filter.Store, args []string) error {
				parsed, err := parseFilters(args)
				if err != nil {
					return err
				}
				for _, p := range parsed {
					if fs.Remove(matchFilter(p)) == 0 {
						progress("No filter matches %s", p)
					}
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "toggle FILTER",
			Short: "Add a filter, or remove it when already set",
			Args:  cobra.ExactArgs(1),
			RunE: editFilters(func(fs *filter.Store, args []string) error {
				parsed, err := parseFilters(args)
				if err != nil {
					return err
				}
				filter.Toggle(fs, parsed[0].Factor, parsed[0].Value)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "day [YYYY-MM-DD]",
			Short: "Select one day; without an argument clear the day",
			Args:  cobra.MaximumNArgs(1),
			RunE: editFilters(func(fs *filter.Store, args []string) error {
				if len(args) == 0 {
					filter.ClearDay(fs)
					return nil
				}
				if _, err := time.Parse(pipeline.DayLayout, args[0]); err != nil {
					return fmt.Errorf("day %q: want YYYY-MM-DD", args[0])
				}
				filter.SelectDay(fs, args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every saved filter",
			Args:  cobra.NoArgs,
			RunE: editFilters(func(fs *filter.Store, _ []string) error {
				fs.Clear()
				return nil
			}),
		},
	)
	rootCmd.AddCommand(filterCmd)
}

// matchFilter matches p's factor, and its value when p has one.
func matchFilter(p filter.Filter) func(filter.Filter) bool {
	return func(f filter.Filter) bool {
		return f.Factor == p.Factor && (p.Value == "" || f.Value == p.Value)
	}
}

func openFilterCache() (*store.Cache, error) {
	if flagNoCache {
		return nil, errFilterCache
	}
	return store.Open(store.CachePath())
}

// editFilters loads the saved set into a store, applies edit and saves
// the result through the store's change notification.
func editFilters(edit func(*filter.Store, []string) error) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		cache, err := openFilterCache()
		if err != nil {
			return err
		}
		defer func() { _ = cache.Close() }()

		saved, err := cache.LoadFilters()
		if err != nil {
			return fmt.Errorf("loading filters: %w", err)
		}
		fs := filter.NewStore(saved...)

		var saveErr error
		changed := false
		unsubscribe := fs.Subscribe(func(next []filter.Filter) {
			changed = true
			if err := cache.SaveFilters(next); err != nil {
				saveErr = fmt.Errorf("saving filters: %w", err)
			}
		})
		defer unsubscribe()

		if err := edit(fs, args); err != nil {
			return err
		}
		if saveErr != nil {
			return saveErr
		}
		if !changed {
			progress("Filters unchanged")
		}
		printFilters(fs.Filters())
		return nil
	}
}

func runFilterList(_ *cobra.Command, _ []string) error {
	cache, err := openFilterCache()
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	filters, err := cache.LoadFilters()
	if err != nil {
		return fmt.Errorf("loading filters: %w", err)
	}
	printFilters(filters)
	return nil
}

func printFilters(filters []filter.Filter) {
	fmt.Println()
	if len(filters) == 0 {
		fmt.Println("  No saved filters. The calendar shows every memo.")
		return
	}
	fmt.Println(cli.RenderPills(filters))
	fmt.Println()

	rows := make([][]string, 0, len(filters))
	for _, f := range filters {
		clause, ok := query.Clause(f)
		switch {
		case ok:
		case f.Factor == filter.DisplayTime:
			clause = "(applied to the fetched memos)"
		default:
			clause = "(ignored)"
		}
		rows = append(rows, []string{f.Label(), f.String(), clause})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Filter", "Argument", "Clause"},
		Rows:    rows,
	}))
}
