package cmd

import (
	"fmt"

	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/query"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the filter expression sent to the memo list endpoint",
	Long: "Print the expression `memocal calendar` would send for the same flags.\n" +
		"The server is only contacted when no user is given.",
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringArrayVarP(&flagFilters, "filter", "f", nil, "Extra filter as factor[=value] (repeatable)")
	queryCmd.Flags().StringVar(&flagDay, "day", "", "Select one day (YYYY-MM-DD)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s := &session{cfg: cfg, cache: openCache()}
	defer s.Close()

	filters, month, err := calendarInputs(s)
	if err != nil {
		return err
	}

	subject := memos.NormalizeUserName(cfg.Server.User)
	if subject == "" {
		client := newClient(cfg)
		if client == nil {
			return errNoServer
		}
		ctx, cancel := withTimeout(cmd.Context())
		defer cancel()
		if subject, err = memos.ResolveSubject(ctx, client, ""); err != nil {
			return err
		}
	}

	b := query.Builder{Location: cfg.Location()}
	expr, err := b.Build(subject, month, filters)
	if err != nil {
		return err
	}
	fmt.Println(expr)
	return nil
}
