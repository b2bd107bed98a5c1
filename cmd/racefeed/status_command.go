package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"racefeed/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and scheduler status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			out := cmd.OutOrStdout()
			if errors.Is(err, api.ErrDaemonUnavailable) {
				if jsonOutput {
					return writeJSON(cmd, api.DaemonStatus{})
				}
				fmt.Fprintln(out, "Daemon:    not running")
				return nil
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, status)
			}
			fmt.Fprint(out, renderStatus(status, ctx.colorEnabled(out)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print status as JSON")
	return cmd
}
