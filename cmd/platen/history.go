package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platen/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived terminal jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history archive is disabled in configuration")
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history archive: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no archived jobs")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				quality := "-"
				if entry.QualityScore != nil {
					quality = fmt.Sprintf("%.0f", *entry.QualityScore)
				}
				rows = append(rows, []string{
					truncate(entry.JobID, 12),
					string(entry.Status),
					truncate(entry.InputPath, 44),
					fmt.Sprintf("%d", entry.OutputCount),
					quality,
					formatDuration(entry.Duration),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Status", "Input", "Outputs", "Quality", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries to show")
	return cmd
}
