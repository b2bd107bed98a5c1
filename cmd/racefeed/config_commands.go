package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"racefeed/internal/config"
)

var skipConfigLoad = map[string]string{"skipConfigLoad": "true"}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the configuration file",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var path string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the annotated sample configuration",
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := initTarget(path)
			if err != nil {
				return fmt.Errorf("resolve config path: %w", err)
			}
			if err := writeSample(target, overwrite); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Fill in [sheets], [catalog] and [generation] (or export GOOGLE_SPREADSHEET_ID, WP_URL and OPENAI_API_KEY) before the first run.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(raw string) (string, error) {
	if raw = strings.TrimSpace(raw); raw == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(raw)
}

func writeSample(target string, overwrite bool) error {
	if !overwrite {
		_, err := os.Stat(target)
		switch {
		case err == nil:
			return fmt.Errorf("%s already exists; pass --overwrite to replace it", target)
		case !errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("check config path: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := config.CreateSample(target); err != nil {
		return fmt.Errorf("create sample config: %w", err)
	}
	return nil
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load, validate and summarize the configuration",
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var flagPath string
			if ctx.configFlag != nil {
				flagPath = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, path, exists, err := config.Load(flagPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			out := cmd.OutOrStdout()
			if !exists {
				fmt.Fprintf(out, "No file at %s; defaults and environment were used\n", path)
			}
			for _, line := range [][2]string{
				{"Config path", path},
				{"Sheets backend", cfg.Sheets.Backend},
				{"Sheet source", sheetSource(cfg)},
				{"Schedule", describeSchedule(cfg.Schedule)},
				{"Translation language", cfg.Catalog.TranslationLanguage},
				{"Journal", cfg.Journal.Driver},
				{"Archive", cfg.Archive.Driver},
			} {
				fmt.Fprintf(out, "%s: %s\n", line[0], line[1])
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func sheetSource(cfg *config.Config) string {
	if cfg.Sheets.Backend == "xlsx" {
		return cfg.Sheets.XLSXPath
	}
	return cfg.Sheets.SpreadsheetID + " / " + cfg.Sheets.WorksheetName
}

func describeSchedule(s config.Schedule) string {
	if s.IntervalSeconds > 0 {
		return "every " + (time.Duration(s.IntervalSeconds) * time.Second).String()
	}
	return fmt.Sprintf("daily at %02d:%02d %s", s.Hour, s.Minute, s.Timezone)
}
