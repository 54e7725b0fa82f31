package pipeline

import (
	"time"

	"platen/internal/jobs"
	"platen/internal/services"
)

// GetProgress computes a point-in-time progress estimate for a job.
//
// The estimate is a heuristic, not a measurement: completed stages contribute
// their even share of 100, and the currently running stage contributes an
// elapsed-time estimate against its expected share of the job timeout,
// capped at 95% of the stage. The overall figure is clamped to 99 until the
// job is actually terminal; 100 is only ever reported for a terminal job.
func (e *Executor) GetProgress(jobID string) (jobs.Progress, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	job, ok := e.jobs[jobID]
	if !ok {
		return jobs.Progress{}, services.Wrap(services.ErrJobNotFound, "pipeline", "progress", jobID, nil)
	}

	progress := jobs.Progress{
		JobID:        job.ID,
		Status:       job.Status,
		CurrentStage: job.CurrentStage,
		UpdatedAt:    time.Now().UTC(),
	}

	if job.IsTerminal() {
		progress.Percent = 100
		progress.Message = string(job.Status)
		if job.ErrorMessage != "" {
			progress.Message = job.ErrorMessage
		}
		return progress, nil
	}

	base := float64(job.CompletedStageCount()) / stageCount * 100

	var stageEstimate float64
	if running := job.RunningStage(); running != nil && running.StartedAt != nil {
		progress.StageName = running.Name
		share := e.stageShare(running.Name)
		budget := e.cfg.JobTimeoutDuration().Seconds() * share
		if budget > 0 {
			elapsed := time.Since(*running.StartedAt).Seconds()
			stageEstimate = elapsed / budget * 100
		}
		if stageEstimate > 95 {
			stageEstimate = 95
		}
		progress.StagePercent = stageEstimate
		progress.Message = running.Name + " in progress"
	}

	overall := base + stageEstimate/stageCount
	if overall > 99 {
		overall = 99
	}
	progress.Percent = overall
	return progress, nil
}

func (e *Executor) stageShare(name string) float64 {
	for _, def := range e.plan {
		if def.name == name {
			return def.share
		}
	}
	return 1.0 / stageCount
}
