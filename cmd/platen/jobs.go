package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"platen/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage conversion jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newJobsListCommand(ctx))
	cmd.AddCommand(newJobsShowCommand(ctx))
	cmd.AddCommand(newJobsCancelCommand(ctx))
	return cmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs newest-first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := ctx.client().ListJobs(cmd.Context(), statusFilter, limit, offset)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no jobs")
				return nil
			}

			rows := make([][]string, 0, len(list))
			for _, job := range list {
				rows = append(rows, []string{
					truncate(job.ID, 12),
					job.Status,
					stageLabel(job.CurrentStage),
					truncate(job.InputPath, 48),
					formatTimestamp(job.CreatedAt),
					formatDuration(time.Duration(job.DurationMS) * time.Millisecond),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Status", "Stage", "Input", "Created", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Filter by status (pending, running, completed, failed, cancelled)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of jobs to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of jobs to skip")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job with its stage records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			job, err := client.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printJob(cmd, client, job)
			return nil
		},
	}
}

func printJob(cmd *cobra.Command, client *api.Client, job api.JobView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderStatusLine("Job", statusInfo, job.ID, colorize))
	fmt.Fprintln(out, renderStatusLine("Status", jobStatusKind(job.Status), job.Status, colorize))
	fmt.Fprintln(out, renderStatusLine("Stage", statusInfo, stageLabel(job.CurrentStage), colorize))
	fmt.Fprintln(out, renderStatusLine("Input", statusInfo, job.InputPath, colorize))
	fmt.Fprintln(out, renderStatusLine("Output dir", statusInfo, job.OutputDir, colorize))
	if job.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, job.ErrorMessage, colorize))
	}
	if job.QualityScore != nil {
		fmt.Fprintln(out, renderStatusLine("Quality", statusInfo, fmt.Sprintf("%.0f/100", *job.QualityScore), colorize))
	}

	if len(job.Stages) > 0 {
		rows := make([][]string, 0, len(job.Stages))
		for _, stage := range job.Stages {
			note := stage.ErrorMessage
			if stage.FallbackUsed && note == "" {
				note = "fallback used"
			}
			rows = append(rows, []string{
				stageLabel(stage.Name),
				stage.Status,
				fmt.Sprintf("%.0f%%", stage.Progress),
				formatDuration(time.Duration(stage.DurationMS) * time.Millisecond),
				truncate(note, 60),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Stage", "Status", "Progress", "Duration", "Notes"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
	}

	if !isTerminalStatus(job.Status) {
		if progress, err := client.GetProgress(cmd.Context(), job.ID); err == nil {
			fmt.Fprintln(out, renderStatusLine("Progress", statusInfo, fmt.Sprintf("%.0f%%", progress.Percent), colorize))
		}
	}
}

func jobStatusKind(status string) statusKind {
	switch status {
	case "completed":
		return statusOK
	case "failed":
		return statusError
	case "cancelled":
		return statusWarn
	default:
		return statusInfo
	}
}

func newJobsCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Request cooperative cancellation of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancellation requested for %s\n", args[0])
			return nil
		},
	}
}
