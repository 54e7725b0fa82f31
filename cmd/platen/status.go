package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and job counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			runningKind := statusError
			runningMsg := "stopped"
			if status.Running {
				runningKind = statusOK
				runningMsg = "running"
			}
			fmt.Fprintln(out, renderStatusLine("Daemon", runningKind, runningMsg, colorize))
			fmt.Fprintln(out, renderStatusLine("Active jobs", statusInfo, fmt.Sprintf("%d", status.Active), colorize))
			fmt.Fprintln(out, renderStatusLine("Submitted", statusInfo, fmt.Sprintf("%d", status.Submitted), colorize))
			fmt.Fprintln(out, renderStatusLine("Completed", statusOK, fmt.Sprintf("%d", status.Completed), colorize))

			failedKind := statusOK
			if status.Failed > 0 {
				failedKind = statusWarn
			}
			fmt.Fprintln(out, renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", status.Failed), colorize))
			fmt.Fprintln(out, renderStatusLine("Cancelled", statusInfo, fmt.Sprintf("%d", status.Cancelled), colorize))

			if len(status.StatusCounts) > 0 {
				keys := make([]string, 0, len(status.StatusCounts))
				for key := range status.StatusCounts {
					keys = append(keys, key)
				}
				sort.Strings(keys)
				for _, key := range keys {
					fmt.Fprintln(out, renderStatusLine(stageLabel(key), statusInfo, fmt.Sprintf("%d", status.StatusCounts[key]), colorize))
				}
			}
			return nil
		},
	}
}
