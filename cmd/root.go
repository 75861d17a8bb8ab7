// Package cmd implements the memocal CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/memocal/internal/config"
	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/pipeline"
	"github.com/theirongolddev/memocal/internal/stats"
	"github.com/theirongolddev/memocal/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var (
	flagServer  string
	flagUser    string
	flagMonth   string
	flagNoCache bool
	flagQuiet   bool
)

var errNoServer = errors.New("no Memos server configured; run `memocal setup` or pass --server")

var rootCmd = &cobra.Command{
	Use:   "memocal",
	Short: "Memos activity calendar",
	Long:  "Show a Memos user's activity calendar and narrow it with content filters.",
	RunE:  runCalendar,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "Memos server URL (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "User resource name, e.g. users/1 (default: token's account)")
	rootCmd.PersistentFlags().StringVarP(&flagMonth, "month", "m", "", "Visible month as YYYY-MM (default: current)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the SQLite cache")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")

	registerCalendarFlags(rootCmd)
}

// progress prints a status line to stderr unless --quiet is set.
func progress(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, "  "+format+"\n", args...)
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagServer != "" {
		cfg.Server.URL = flagServer
	}
	if flagUser != "" {
		cfg.Server.User = memos.NormalizeUserName(flagUser)
	}
	return cfg, nil
}

// newClient builds the API client, or nil when the server URL is unusable.
func newClient(cfg config.Config) *memos.Client {
	rps := cfg.Server.RequestsPerSecond
	if rps <= 0 {
		return memos.NewClient(cfg.Server.URL, cfg.Server.Token)
	}
	return memos.NewClient(cfg.Server.URL, cfg.Server.Token,
		memos.WithRateLimit(rate.Limit(rps), max(int(rps), 1)))
}

// openCache opens the local cache unless --no-cache is set. A cache that
// cannot be opened is reported and skipped.
func openCache() *store.Cache {
	if flagNoCache {
		return nil
	}
	cache, err := store.Open(store.CachePath())
	if err != nil {
		progress("Cache unavailable: %v", err)
		return nil
	}
	return cache
}

// session bundles what the server-facing commands need.
type session struct {
	cfg    config.Config
	client *memos.Client
	cache  *store.Cache
}

func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	client := newClient(cfg)
	if client == nil {
		return nil, errNoServer
	}
	return &session{cfg: cfg, client: client, cache: openCache()}, nil
}

func (s *session) Close() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
}

// statsCache returns the cache as a stats.Cache, or an untyped nil so
// stats.Load sees a nil interface.
func (s *session) statsCache() stats.Cache {
	if s.cache == nil {
		return nil
	}
	return s.cache
}

// persistedFilters reads the saved filter set; without a cache it is empty.
func persistedFilters(cache *store.Cache) []filter.Filter {
	if cache == nil {
		return nil
	}
	filters, err := cache.LoadFilters()
	if err != nil {
		progress("Saved filters unavailable: %v", err)
		return nil
	}
	return filters
}

// parseFilters parses factor[=value] arguments.
func parseFilters(args []string) ([]filter.Filter, error) {
	out := make([]filter.Filter, 0, len(args))
	for _, a := range args {
		f, err := filter.Parse(a)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", a, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// visibleMonth returns --month, or the current month in the configured zone.
func visibleMonth(cfg config.Config) (string, error) {
	if flagMonth == "" {
		return pipeline.CurrentMonth(time.Now().In(cfg.Location())), nil
	}
	if _, err := pipeline.ParseMonth(flagMonth, time.UTC); err != nil {
		return "", fmt.Errorf("--month %q: %w", flagMonth, err)
	}
	return flagMonth, nil
}

// withTimeout bounds one-shot API calls.
func withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 30*time.Second)
}
