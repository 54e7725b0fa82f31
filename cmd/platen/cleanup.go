package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var olderThan int

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove terminal jobs past the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Cleanup(cmd.Context(), olderThan)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d job(s) older than %dh\n", resp.Removed, resp.OlderThanHours)
			return nil
		},
	}

	cmd.Flags().IntVar(&olderThan, "older-than", -1, "Retention window in hours (default: daemon configuration)")
	return cmd
}
