package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"racefeed/internal/logging"
	"racefeed/internal/pipeline"
	"racefeed/internal/rowstore"
	"racefeed/internal/submission"
)

func newGroupsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Show the groups the next pass would publish",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := pipeline.OpenStore(cfg, logging.NewNop(), nil)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, _, err := store.LoadAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("load rows: %w", err)
			}
			scan := submission.Scan(rows)
			if jsonOutput {
				return writeJSON(cmd, groupsPayload(scan))
			}
			fmt.Fprint(cmd.OutOrStdout(), renderGroups(scan))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print groups as JSON")
	return cmd
}

type groupView struct {
	HeadRow     int    `json:"headRow"`
	ID          string `json:"id,omitempty"`
	RaceName    string `json:"raceName"`
	VariantRows []int  `json:"variantRows"`
}

type terminatorView struct {
	Row     int    `json:"row"`
	Status  string `json:"status"`
	HeadRow int    `json:"headRow"`
}

type groupsView struct {
	Groups      []groupView      `json:"groups"`
	Terminators []terminatorView `json:"terminators"`
	Skipped     int              `json:"skipped"`
}

func groupsPayload(scan submission.ScanResult) groupsView {
	out := groupsView{
		Groups:      make([]groupView, 0, len(scan.Groups)),
		Terminators: make([]terminatorView, 0, len(scan.Terminators)),
		Skipped:     scan.Skipped,
	}
	for _, g := range scan.Groups {
		out.Groups = append(out.Groups, groupView{
			HeadRow:     g.Head.Position,
			ID:          g.Head.ID(),
			RaceName:    g.Head.Get(rowstore.FieldRaceName),
			VariantRows: g.VariantPositions(),
		})
	}
	for _, t := range scan.Terminators {
		out.Terminators = append(out.Terminators, terminatorView{Row: t.Position, Status: t.Status, HeadRow: t.HeadPosition})
	}
	return out
}
