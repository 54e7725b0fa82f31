package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"platen/internal/api"
	"platen/internal/jobs"
)

const progressPollInterval = 2 * time.Second

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var title string
	var jobID string
	var noWait bool

	cmd := &cobra.Command{
		Use:   "convert <input.tex>",
		Short: "Submit a document for conversion and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath, err := filepath.Abs(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve input path: %w", err)
			}

			options := map[string]any{}
			if strings.TrimSpace(title) != "" {
				options["title"] = strings.TrimSpace(title)
			}

			client := ctx.client()
			id, err := client.Submit(cmd.Context(), api.SubmitRequest{
				JobID:     jobID,
				InputPath: inputPath,
				OutputDir: outputDir,
				Options:   options,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s submitted\n", id)
			if noWait {
				return nil
			}
			return waitForResult(cmd, client, id)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (defaults to the configured output root)")
	cmd.Flags().StringVar(&title, "title", "", "Document title passed to the markup converter")
	cmd.Flags().StringVar(&jobID, "id", "", "Explicit job ID (defaults to a generated UUID)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return immediately after submission")
	return cmd
}

func waitForResult(cmd *cobra.Command, client *api.Client, jobID string) error {
	out := cmd.OutOrStdout()
	var lastLine string

	for {
		progress, err := client.GetProgress(cmd.Context(), jobID)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%s %.0f%% (%s)", stageLabel(progress.CurrentStage), progress.Percent, progress.Status)
		if line != lastLine {
			fmt.Fprintln(out, line)
			lastLine = line
		}
		if isTerminalStatus(progress.Status) {
			break
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(progressPollInterval):
		}
	}

	status, err := client.GetJob(cmd.Context(), jobID)
	if err != nil {
		return err
	}
	if status.Status == string(jobs.StatusCancelled) {
		fmt.Fprintf(out, "job %s cancelled\n", jobID)
		return nil
	}

	result, err := client.GetResult(cmd.Context(), jobID)
	if err != nil {
		return err
	}
	printResult(cmd, result)
	if !result.Success {
		return fmt.Errorf("conversion failed: %s", result.ErrorMessage)
	}
	return nil
}

func printResult(cmd *cobra.Command, result api.ResultView) {
	out := cmd.OutOrStdout()
	if result.Success {
		fmt.Fprintf(out, "completed in %s\n", (time.Duration(result.DurationMS) * time.Millisecond).Round(time.Millisecond))
		if result.MainOutput != "" {
			fmt.Fprintf(out, "output: %s\n", result.MainOutput)
		}
		if len(result.Assets) > 0 {
			fmt.Fprintf(out, "assets: %d\n", len(result.Assets))
		}
		if result.QualityScore != nil {
			fmt.Fprintf(out, "quality: %.0f/100\n", *result.QualityScore)
		}
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}
	for _, errMsg := range result.Errors {
		fmt.Fprintf(out, "error: %s\n", errMsg)
	}
}

func isTerminalStatus(status string) bool {
	switch jobs.Status(status) {
	case jobs.StatusCompleted, jobs.StatusFailed, jobs.StatusCancelled:
		return true
	default:
		return false
	}
}
