package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"racefeed/internal/api"
	"racefeed/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var remote bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent passes from the run journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			passes, err := loadHistory(cmd, ctx, limit, remote)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, api.HistoryResponse{Passes: passes})
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderHistory(passes, ctx.colorEnabled(out)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of passes to show")
	cmd.Flags().BoolVar(&remote, "remote", false, "Ask the running daemon instead of opening the journal")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print passes as JSON")
	return cmd
}

func loadHistory(cmd *cobra.Command, ctx *commandContext, limit int, remote bool) ([]api.Pass, error) {
	if remote {
		client, err := ctx.client()
		if err != nil {
			return nil, err
		}
		return client.History(cmd.Context(), limit)
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	rec, err := journal.Open(cmd.Context(), cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer rec.Close()
	passes, err := rec.RecentPasses(cmd.Context(), limit)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	out := make([]api.Pass, 0, len(passes))
	for _, p := range passes {
		out = append(out, api.FromJournalPass(p))
	}
	return out, nil
}
