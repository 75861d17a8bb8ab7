package cmd

import (
	"fmt"

	"github.com/theirongolddev/memocal/internal/filter"
	"github.com/theirongolddev/memocal/internal/tui"
	"github.com/theirongolddev/memocal/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	month := ""
	if flagMonth != "" {
		if month, err = visibleMonth(cfg); err != nil {
			return err
		}
	}

	cache := openCache()
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	app := tui.NewApp(tui.Options{
		Config:  cfg,
		Cache:   cache,
		Connect: newClient,
		Subject: cfg.Server.User,
		Month:   month,
		Filters: filter.NewStore(persistedFilters(cache)...),
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
