package pipeline

import (
	"context"
	"fmt"
	"time"

	"platen/internal/jobs"
)

// Request is the typed input handed to a stage collaborator. Collaborators
// may write into WorkDir and OutputDir but must not touch the Job itself;
// only the returned Outcome flows back into the core.
type Request struct {
	JobID     string
	InputPath string
	WorkDir   string
	OutputDir string
	Options   jobs.Metadata
	Timeout   time.Duration
}

// OutcomeKind classifies a collaborator result.
type OutcomeKind int

const (
	// OutcomeOK means the stage succeeded.
	OutcomeOK OutcomeKind = iota
	// OutcomeRecoverable means the stage failed but the pipeline may
	// continue with the stage skipped.
	OutcomeRecoverable
	// OutcomeFatal means the stage failed and the job must abort.
	OutcomeFatal
)

// Outcome is the tagged result every collaborator returns. Metadata carries
// collaborator-specific diagnostics (warnings, sub-results) into the stage
// record; Err is set for recoverable and fatal outcomes.
type Outcome struct {
	Kind     OutcomeKind
	Metadata jobs.Metadata
	Err      error
}

// OK builds a success outcome.
func OK(meta jobs.Metadata) Outcome {
	return Outcome{Kind: OutcomeOK, Metadata: meta}
}

// Recoverable builds an outcome that degrades the stage to a fallback.
func Recoverable(err error, meta jobs.Metadata) Outcome {
	return Outcome{Kind: OutcomeRecoverable, Metadata: meta, Err: err}
}

// Fatal builds an outcome that aborts the job.
func Fatal(err error, meta jobs.Metadata) Outcome {
	return Outcome{Kind: OutcomeFatal, Metadata: meta, Err: err}
}

// Collaborator is the contract each external conversion step satisfies.
type Collaborator interface {
	Name() string
	Run(ctx context.Context, req Request) Outcome
}

// Collaborators bundles the four stage implementations the executor drives.
type Collaborators struct {
	Compiler        Collaborator
	MarkupConverter Collaborator
	PostProcessor   Collaborator
	Validator       Collaborator
}

func (c Collaborators) validate() error {
	for _, entry := range []struct {
		name string
		impl Collaborator
	}{
		{"compiler", c.Compiler},
		{"markup converter", c.MarkupConverter},
		{"post-processor", c.PostProcessor},
		{"validator", c.Validator},
	} {
		if entry.impl == nil {
			return fmt.Errorf("%s collaborator is required", entry.name)
		}
	}
	return nil
}

// StageError identifies the pipeline stage that aborted a job.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
