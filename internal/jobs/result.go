package jobs

import "time"

// Result is the immutable summary built once a job reaches a terminal status.
type Result struct {
	JobID           string
	Success         bool
	OutputFiles     []string
	Assets          []string
	MainOutput      string
	QualityScore    *float64
	CompletedStages []string
	Warnings        []string
	Errors          []string
	ErrorMessage    string
	CreatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	Duration        time.Duration
}

// BuildResult assembles a Result from a terminal job. Warnings are pooled
// from every stage record's metadata; errors collect the non-empty stage
// error messages in pipeline order.
func BuildResult(job *Job) Result {
	res := Result{
		JobID:        job.ID,
		Success:      job.Status == StatusCompleted,
		OutputFiles:  append([]string(nil), job.OutputFiles...),
		Assets:       append([]string(nil), job.Assets...),
		QualityScore: job.QualityScore,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
		Duration:     job.Duration(),
	}
	if len(res.OutputFiles) > 0 {
		res.MainOutput = res.OutputFiles[0]
	}
	for _, rec := range job.Stages {
		if rec.Status == StageStatusCompleted {
			res.CompletedStages = append(res.CompletedStages, rec.Name)
		}
		res.Warnings = append(res.Warnings, rec.Warnings()...)
		if rec.ErrorMessage != "" {
			res.Errors = append(res.Errors, rec.ErrorMessage)
		}
	}
	return res
}

// Progress is a point-in-time snapshot of how far a job has advanced. The
// percentage is a heuristic derived from stage weights and elapsed time, not
// a measured value; it is clamped below 100 until the job is terminal.
type Progress struct {
	JobID        string
	Status       Status
	CurrentStage Stage
	StageName    string
	Percent      float64
	StagePercent float64
	Message      string
	UpdatedAt    time.Time
}
