package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"racefeed/internal/api"
	"racefeed/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var skipAI bool
	var skipImage bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one pass over the work queue and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if skipAI {
				cfg.Generation.SkipAI = true
			}
			if skipImage {
				cfg.Generation.SkipImage = true
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			rt, err := pipeline.Build(signalCtx, cfg, logger, nil)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}
			defer rt.Close()

			summary, err := rt.Pipeline.RunPass(signalCtx, "manual")
			if errors.Is(err, pipeline.ErrPassInProgress) {
				return fmt.Errorf("%w; wait for it to finish or check `racefeed status`", err)
			}
			if jsonOutput {
				if encErr := writeJSON(cmd, api.FromPassSummary(summary)); encErr != nil {
					return encErr
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderPassSummary(summary, ctx.colorEnabled(out)))
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the pass summary as JSON")
	cmd.Flags().BoolVar(&skipAI, "skip-ai", false, "Use placeholder content instead of calling the generation service")
	cmd.Flags().BoolVar(&skipImage, "skip-image", false, "Use the placeholder image instead of generating one")
	return cmd
}
