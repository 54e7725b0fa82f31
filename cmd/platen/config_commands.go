package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"platen/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if err := config.WriteSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Work dir", statusInfo, cfg.Paths.WorkDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Output dir", statusInfo, cfg.Paths.OutputDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Log dir", statusInfo, cfg.Paths.LogDir, colorize))
			fmt.Fprintln(out, renderStatusLine("API bind", statusInfo, cfg.Paths.APIBind, colorize))
			fmt.Fprintln(out, renderStatusLine("Max concurrent jobs", statusInfo, fmt.Sprintf("%d", cfg.Orchestrator.MaxConcurrentJobs), colorize))
			fmt.Fprintln(out, renderStatusLine("Job timeout", statusInfo, cfg.JobTimeoutDuration().String(), colorize))
			fmt.Fprintln(out, renderStatusLine("Max job duration", statusInfo, cfg.MaxJobDurationDuration().String(), colorize))
			fmt.Fprintln(out, renderStatusLine("Retention", statusInfo, fmt.Sprintf("%dh", cfg.Orchestrator.RetentionHours), colorize))
			fmt.Fprintln(out, renderStatusLine("Compiler", statusInfo, cfg.Tools.Compiler.Command, colorize))
			fmt.Fprintln(out, renderStatusLine("Markup converter", statusInfo, cfg.Tools.MarkupConverter.Command, colorize))
			fmt.Fprintln(out, renderStatusLine("HTML cleaner", statusInfo, cfg.Tools.HTMLCleaner.Command, colorize))
			fmt.Fprintln(out, renderStatusLine("Vector converter", statusInfo, cfg.Tools.VectorConverter.Command, colorize))
			historyState := "disabled"
			if cfg.History.Enabled {
				historyState = cfg.History.Path
			}
			fmt.Fprintln(out, renderStatusLine("History archive", statusInfo, historyState, colorize))
			fmt.Fprintln(out, renderStatusLine("Log level", statusInfo, cfg.Logging.Level, colorize))
			return nil
		},
	}
}
