package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"racefeed/internal/daemon"
	"racefeed/internal/logging"
	"racefeed/internal/metrics"
	"racefeed/internal/pipeline"
	"racefeed/internal/scheduler"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run passes on the configured schedule and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			logging.PruneLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, time.Now())

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			m := metrics.New()
			rt, err := pipeline.Build(signalCtx, cfg, logger, m)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}
			defer rt.Close()

			opts, err := scheduler.OptionsFromConfig(cfg.Schedule)
			if err != nil {
				return err
			}
			sched := scheduler.New(rt.Pipeline, opts, logger)
			d, err := daemon.New(cfg, sched, rt.Journal, m, rt.Notifier, logger)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			if err := d.Run(signalCtx); err != nil {
				return err
			}
			logger.Info("racefeed daemon shutting down")
			return nil
		},
	}
}
