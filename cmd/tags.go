package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/theirongolddev/memocal/internal/cli"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/stats"

	"github.com/spf13/cobra"
)

var flagTagsLimit int

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Tag usage ranking",
	RunE:  runTags,
}

func init() {
	tagsCmd.Flags().IntVarP(&flagTagsLimit, "limit", "n", 20, "Show at most this many tags (0 for all)")
	tagsCmd.Flags().StringVarP(&flagOutput, "output", "o", outputTable, "Output format: table, json or yaml")
	rootCmd.AddCommand(tagsCmd)
}

type tagCount struct {
	Tag   string `json:"tag" yaml:"tag"`
	Memos int    `json:"memos" yaml:"memos"`
}

func rankTags(counts map[string]int, limit int) []tagCount {
	tags := make([]tagCount, 0, len(counts))
	for tag, n := range counts {
		tags = append(tags, tagCount{Tag: tag, Memos: n})
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Memos != tags[j].Memos {
			return tags[i].Memos > tags[j].Memos
		}
		return tags[i].Tag < tags[j].Tag
	})
	if limit > 0 && len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}

func runTags(cmd *cobra.Command, _ []string) error {
	if err := validateOutput(flagOutput); err != nil {
		return err
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := withTimeout(cmd.Context())
	defer cancel()

	subject, err := memos.ResolveSubject(ctx, s.client, s.cfg.Server.User)
	if err != nil {
		return err
	}
	snap, err := stats.Load(ctx, s.client, s.statsCache(), subject, s.cfg.Location())
	if err != nil && !snap.Stale {
		return err
	}

	tags := rankTags(snap.TagCounts, flagTagsLimit)
	if flagOutput != outputTable {
		return writeStructured(os.Stdout, flagOutput, tags)
	}
	if len(tags) == 0 {
		fmt.Println("\n  No tags found.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("TAGS  " + subject))
	fmt.Println()

	rows := make([][]string, 0, len(tags))
	for _, tc := range tags {
		rows = append(rows, []string{
			cli.Truncate("#"+tc.Tag, 24),
			cli.FormatNumber(int64(tc.Memos)),
			cli.RenderHorizontalBar("", tc.Memos, tags[0].Memos, 30),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Tag", "Memos", ""},
		Rows:    rows,
	}))
	if snap.Stale {
		fmt.Printf("  Warning: %v; showing statistics cached %s\n", err, cli.FormatAgo(snap.FetchedAt))
	}

	return nil
}
