package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/memocal/internal/config"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg, _ := loadConfig()

	vals := tui.SetupValuesFrom(cfg)
	if err := tui.NewSetupForm(&vals).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup canceled, nothing saved.")
			return nil
		}
		return err
	}
	tui.ApplySetup(&cfg, vals)

	if client := newClient(cfg); client != nil && cfg.Server.Token != "" {
		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		if u, err := client.CurrentUser(ctx); err != nil {
			fmt.Printf("  Warning: could not sign in: %v\n", err)
		} else {
			name := u.DisplayName
			if name == "" {
				name = u.Username
			}
			fmt.Printf("  Signed in as %s (%s)\n", name, u.Name)
			if cfg.Server.User != "" {
				if _, err := memos.ExtractUserID(cfg.Server.User); err != nil {
					fmt.Printf("  Warning: %v\n", err)
				}
			}
		}
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	fmt.Println("  Run `memocal setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}
