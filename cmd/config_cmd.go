package cmd

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/memocal/internal/config"
	"github.com/theirongolddev/memocal/internal/store"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Printf("  Cache:       %s\n", store.CachePath())
	if cache := openCache(); cache != nil {
		if users, err := cache.SnapshotUsers(); err == nil && len(users) > 0 {
			fmt.Printf("  Cached:      %s\n", strings.Join(users, ", "))
		}
		_ = cache.Close()
	}
	fmt.Println()

	fmt.Println("  [Server]")
	if cfg.Server.URL != "" {
		fmt.Printf("    URL:          %s\n", cfg.Server.URL)
	} else {
		fmt.Println("    URL:          not configured")
	}
	if cfg.Server.Token != "" {
		fmt.Printf("    Access token: %s\n", config.MaskToken(cfg.Server.Token))
	} else {
		fmt.Println("    Access token: not configured")
	}
	if cfg.Server.User != "" {
		fmt.Printf("    User:         %s\n", cfg.Server.User)
	} else {
		fmt.Println("    User:         token's account")
	}
	fmt.Printf("    Rate limit:   %.1f req/s\n", cfg.Server.RequestsPerSecond)
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Page size: %d\n", cfg.General.PageSize)
	tz := cfg.General.Timezone
	if tz == "" {
		tz = "local (" + cfg.Location().String() + ")"
	}
	fmt.Printf("    Timezone:  %s\n", tz)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [TUI]")
	fmt.Printf("    Auto refresh: %v every %s\n", cfg.TUI.AutoRefresh, cfg.RefreshInterval())
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %s\n", cfg.PollInterval())
	fmt.Println()

	fmt.Println("  Run `memocal setup` to reconfigure.")
	return nil
}
