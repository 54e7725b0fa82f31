package api

import (
	"time"

	"platen/internal/jobs"
)

// NewJobView converts a job snapshot into its wire form.
func NewJobView(job *jobs.Job) JobView {
	view := JobView{
		ID:           job.ID,
		Status:       string(job.Status),
		CurrentStage: string(job.CurrentStage),
		InputPath:    job.InputPath,
		OutputDir:    job.OutputDir,
		ErrorMessage: job.ErrorMessage,
		QualityScore: job.QualityScore,
		CreatedAt:    job.CreatedAt.Format(time.RFC3339Nano),
		DurationMS:   job.Duration().Milliseconds(),
	}
	if job.StartedAt != nil {
		view.StartedAt = job.StartedAt.Format(time.RFC3339Nano)
	}
	if job.CompletedAt != nil {
		view.CompletedAt = job.CompletedAt.Format(time.RFC3339Nano)
	}
	for _, rec := range job.Stages {
		view.Stages = append(view.Stages, newStageRecordView(rec))
	}
	return view
}

func newStageRecordView(rec *jobs.StageRecord) StageRecordView {
	view := StageRecordView{
		Name:         rec.Name,
		Status:       string(rec.Status),
		Progress:     rec.Progress,
		ErrorMessage: rec.ErrorMessage,
		DurationMS:   rec.Duration().Milliseconds(),
	}
	if rec.Metadata != nil {
		if used, ok := rec.Metadata[jobs.MetaFallbackUsed].(bool); ok {
			view.FallbackUsed = used
		}
	}
	return view
}

// NewJobViews converts a slice of job snapshots, preserving order.
func NewJobViews(list []*jobs.Job) []JobView {
	views := make([]JobView, 0, len(list))
	for _, job := range list {
		views = append(views, NewJobView(job))
	}
	return views
}

// NewProgressView converts a progress estimate into its wire form.
func NewProgressView(progress jobs.Progress) ProgressView {
	return ProgressView{
		JobID:        progress.JobID,
		Status:       string(progress.Status),
		CurrentStage: string(progress.CurrentStage),
		StageName:    progress.StageName,
		Percent:      progress.Percent,
		StagePercent: progress.StagePercent,
		Message:      progress.Message,
	}
}

// NewResultView converts a terminal job result into its wire form.
func NewResultView(result jobs.Result) ResultView {
	return ResultView{
		JobID:           result.JobID,
		Success:         result.Success,
		OutputFiles:     result.OutputFiles,
		Assets:          result.Assets,
		MainOutput:      result.MainOutput,
		QualityScore:    result.QualityScore,
		CompletedStages: result.CompletedStages,
		Warnings:        result.Warnings,
		Errors:          result.Errors,
		ErrorMessage:    result.ErrorMessage,
		DurationMS:      result.Duration.Milliseconds(),
	}
}
