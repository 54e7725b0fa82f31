// Package api defines the JSON view types exchanged over the daemon's HTTP
// interface and the service that builds them from orchestrator state.
package api

// JobView is the wire representation of one job.
type JobView struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	CurrentStage string            `json:"current_stage"`
	InputPath    string            `json:"input_path"`
	OutputDir    string            `json:"output_dir"`
	ErrorMessage string            `json:"error_message,omitempty"`
	QualityScore *float64          `json:"quality_score,omitempty"`
	CreatedAt    string            `json:"created_at"`
	StartedAt    string            `json:"started_at,omitempty"`
	CompletedAt  string            `json:"completed_at,omitempty"`
	DurationMS   int64             `json:"duration_ms,omitempty"`
	Stages       []StageRecordView `json:"stages,omitempty"`
}

// StageRecordView is the wire representation of one stage record.
type StageRecordView struct {
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	Progress     float64 `json:"progress"`
	ErrorMessage string  `json:"error_message,omitempty"`
	FallbackUsed bool    `json:"fallback_used,omitempty"`
	DurationMS   int64   `json:"duration_ms,omitempty"`
}

// ProgressView is the wire representation of a progress estimate.
type ProgressView struct {
	JobID        string  `json:"job_id"`
	Status       string  `json:"status"`
	CurrentStage string  `json:"current_stage"`
	StageName    string  `json:"stage_name,omitempty"`
	Percent      float64 `json:"percent"`
	StagePercent float64 `json:"stage_percent"`
	Message      string  `json:"message,omitempty"`
}

// ResultView is the wire representation of a terminal job result.
type ResultView struct {
	JobID           string   `json:"job_id"`
	Success         bool     `json:"success"`
	OutputFiles     []string `json:"output_files,omitempty"`
	Assets          []string `json:"assets,omitempty"`
	MainOutput      string   `json:"main_output,omitempty"`
	QualityScore    *float64 `json:"quality_score,omitempty"`
	CompletedStages []string `json:"completed_stages,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	Errors          []string `json:"errors,omitempty"`
	ErrorMessage    string   `json:"error_message,omitempty"`
	DurationMS      int64    `json:"duration_ms"`
}

// StatusView summarizes daemon state.
type StatusView struct {
	Running      bool           `json:"running"`
	Active       int            `json:"active"`
	Submitted    int            `json:"submitted"`
	Completed    int            `json:"completed"`
	Failed       int            `json:"failed"`
	Cancelled    int            `json:"cancelled"`
	StatusCounts map[string]int `json:"status_counts"`
}

// SubmitRequest is the payload accepted by the job submission endpoint.
type SubmitRequest struct {
	JobID     string         `json:"job_id,omitempty"`
	InputPath string         `json:"input_path"`
	OutputDir string         `json:"output_dir,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

// SubmitResponse acknowledges an admitted job.
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// JobListResponse wraps a job listing.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// CleanupResponse reports the outcome of a retention sweep.
type CleanupResponse struct {
	Removed        int `json:"removed"`
	OlderThanHours int `json:"older_than_hours"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}
