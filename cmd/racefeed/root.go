package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var noColor bool

	ctx := newCommandContext(&configFlag, &noColor)

	root := &cobra.Command{
		Use:           "racefeed",
		Short:         "Enrich race submissions from the sheet and publish them to the catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	flags.BoolVar(&noColor, "no-color", false, "Disable coloured output")

	for _, build := range []func(*commandContext) *cobra.Command{
		newRunCommand,
		newDaemonCommand,
		newTriggerCommand,
		newStatusCommand,
		newGroupsCommand,
		newHistoryCommand,
		newTestNotifyCommand,
		newConfigCommand,
	} {
		root.AddCommand(build(ctx))
	}
	return root
}
