package jobs

import (
	"strings"
	"time"
)

// StageStatus represents the lifecycle of a single stage record.
type StageStatus string

const (
	StageStatusPending   StageStatus = "pending"
	StageStatusRunning   StageStatus = "running"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
	StageStatusSkipped   StageStatus = "skipped"
	StageStatusCancelled StageStatus = "cancelled"
)

// Metadata keys stages use for fallback diagnostics.
const (
	MetaFallbackUsed   = "fallback_used"
	MetaFallbackReason = "fallback_reason"
	MetaWarnings       = "warnings"
)

// StageRecord tracks one pipeline stage for one job. Records are created
// Pending at job construction; once a record leaves Pending it never returns
// to it, and at most one record per job is Running at a time.
type StageRecord struct {
	Name         string
	Status       StageStatus
	StartedAt    *time.Time
	CompletedAt  *time.Time
	Progress     float64
	ErrorMessage string
	Metadata     Metadata
}

// NewStageRecord builds a pending record for the named stage.
func NewStageRecord(name string) *StageRecord {
	return &StageRecord{
		Name:     name,
		Status:   StageStatusPending,
		Metadata: Metadata{},
	}
}

// IsTerminal reports whether the record has left the pending/running states.
func (r *StageRecord) IsTerminal() bool {
	switch r.Status {
	case StageStatusCompleted, StageStatusFailed, StageStatusSkipped, StageStatusCancelled:
		return true
	default:
		return false
	}
}

// Duration returns the elapsed time between start and completion, or the time
// since start for a running record.
func (r *StageRecord) Duration() time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	if r.CompletedAt == nil {
		if r.Status == StageStatusRunning {
			return time.Since(*r.StartedAt)
		}
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

// Start marks the record running and stamps the start time.
func (r *StageRecord) Start() {
	now := time.Now().UTC()
	r.Status = StageStatusRunning
	r.StartedAt = &now
	r.Progress = 0
}

// Complete marks the record successfully finished.
func (r *StageRecord) Complete() {
	now := time.Now().UTC()
	r.Status = StageStatusCompleted
	r.CompletedAt = &now
	r.Progress = 100
}

// Fail marks the record failed with the given error message.
func (r *StageRecord) Fail(message string) {
	now := time.Now().UTC()
	r.Status = StageStatusFailed
	r.CompletedAt = &now
	r.ErrorMessage = strings.TrimSpace(message)
}

// Skip marks the record skipped, recording the fallback reason so later
// diagnostics can explain the degraded output.
func (r *StageRecord) Skip(reason string) {
	now := time.Now().UTC()
	r.Status = StageStatusSkipped
	r.CompletedAt = &now
	if r.Metadata == nil {
		r.Metadata = Metadata{}
	}
	r.Metadata[MetaFallbackUsed] = true
	r.Metadata[MetaFallbackReason] = strings.TrimSpace(reason)
}

// Cancel marks the record cancelled.
func (r *StageRecord) Cancel() {
	now := time.Now().UTC()
	r.Status = StageStatusCancelled
	r.CompletedAt = &now
}

// Warnings returns the warning strings stashed in the record metadata.
func (r *StageRecord) Warnings() []string {
	if r.Metadata == nil {
		return nil
	}
	switch v := r.Metadata[MetaWarnings].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy of the record.
func (r *StageRecord) Clone() *StageRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Metadata = r.Metadata.Clone()
	if r.StartedAt != nil {
		t := *r.StartedAt
		cp.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
