// Package pipeline executes conversion jobs against the four fixed stages.
//
// The Executor owns job construction and the stage state machine: primary
// compilation (recoverable; a failure skips the stage and the pipeline
// continues), markup conversion, post-processing, and validation (all fatal).
// Each stage delegates to a Collaborator, which returns a tagged Outcome
// (ok, recoverable, or fatal) instead of signalling policy through error
// types. The Executor keeps its own mutex-guarded job map so progress and
// cancellation queries work independently of the orchestrator while a job is
// mid-flight.
//
// Progress reporting is a heuristic built from stage weights and elapsed
// time, clamped below 100 until the job is terminal; it is not a measured
// value and is documented as such on GetProgress.
package pipeline
