package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a conversion job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var terminalStatuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// Stage identifies a position in the fixed conversion pipeline.
type Stage string

const (
	StageInitialized      Stage = "initialized"
	StageCompilingPrimary Stage = "compiling_primary"
	StageCompiledPrimary  Stage = "compiled_primary"
	StageConvertingMarkup Stage = "converting_markup"
	StageConvertedMarkup  Stage = "converted_markup"
	StagePostProcessing   Stage = "postprocessing"
	StagePostProcessed    Stage = "postprocessed"
	StageValidating       Stage = "validating"
	StageCompleted        Stage = "completed"
	StageFailed           Stage = "failed"
	StageCancelled        Stage = "cancelled"
)

// Metadata is the loosely typed side-channel collaborators use to report
// diagnostics (fallback reasons, warnings, discovered project info). The
// core's required fields stay strongly typed on Job and StageRecord.
type Metadata map[string]any

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	cp := make(Metadata, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Job represents one conversion request and its state through the pipeline.
type Job struct {
	ID           string
	InputPath    string
	OutputDir    string
	Options      Metadata
	Status       Status
	CurrentStage Stage
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	Stages       []*StageRecord
	OutputFiles  []string
	Assets       []string
	QualityScore *float64
	Metadata     Metadata
	ErrorMessage string
	RetryCount   int
	MaxRetries   int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status is final.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// IsTerminal reports whether the job has reached a final status.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// Duration returns the wall-clock time between start and completion, or zero
// when either timestamp is missing.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// SetRunning marks the job as started.
func (j *Job) SetRunning() {
	now := time.Now().UTC()
	j.Status = StatusRunning
	j.StartedAt = &now
}

// SetFailed marks the job as failed with the given error message and stamps
// the completion time.
func (j *Job) SetFailed(message string) {
	now := time.Now().UTC()
	j.Status = StatusFailed
	j.CurrentStage = StageFailed
	j.ErrorMessage = message
	j.CompletedAt = &now
}

// SetCancelled marks the job as cancelled and stamps the completion time.
func (j *Job) SetCancelled(reason string) {
	now := time.Now().UTC()
	j.Status = StatusCancelled
	j.CurrentStage = StageCancelled
	if strings.TrimSpace(reason) != "" {
		j.ErrorMessage = reason
	}
	j.CompletedAt = &now
}

// SetCompleted marks the job as successfully finished.
func (j *Job) SetCompleted() {
	now := time.Now().UTC()
	j.Status = StatusCompleted
	j.CurrentStage = StageCompleted
	j.CompletedAt = &now
}

// RunningStage returns the stage record currently marked running, if any.
func (j *Job) RunningStage() *StageRecord {
	for _, rec := range j.Stages {
		if rec.Status == StageStatusRunning {
			return rec
		}
	}
	return nil
}

// CompletedStageCount counts stage records that reached a terminal per-stage
// status other than cancellation. Skipped stages count: the pipeline moved
// past them.
func (j *Job) CompletedStageCount() int {
	count := 0
	for _, rec := range j.Stages {
		switch rec.Status {
		case StageStatusCompleted, StageStatusFailed, StageStatusSkipped:
			count++
		}
	}
	return count
}

// Clone returns a deep copy safe to hand to readers while the worker keeps
// mutating the original.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.Options = j.Options.Clone()
	cp.Metadata = j.Metadata.Clone()
	if j.StartedAt != nil {
		t := *j.StartedAt
		cp.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		cp.CompletedAt = &t
	}
	if j.QualityScore != nil {
		v := *j.QualityScore
		cp.QualityScore = &v
	}
	cp.OutputFiles = append([]string(nil), j.OutputFiles...)
	cp.Assets = append([]string(nil), j.Assets...)
	cp.Stages = make([]*StageRecord, len(j.Stages))
	for i, rec := range j.Stages {
		cp.Stages[i] = rec.Clone()
	}
	return &cp
}
