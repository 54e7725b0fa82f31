// Package orchestrator owns the canonical job registry and the conversion
// lifecycle around the pipeline executor.
//
// It admission-controls new work against the concurrency ceiling, launches
// one goroutine per accepted job, and guarantees the active slot is released
// exactly once on every worker exit path. Two background loops run for the
// orchestrator's lifetime: retention cleanup (expires terminal jobs older
// than the configured window) and the stuck-job monitor (cancels running
// jobs that overran the wall-clock ceiling). Loop iterations swallow and log
// their own errors so one bad pass never kills a loop.
//
// All registry bookkeeping happens under a single mutex; the pipeline itself
// never runs while that lock is held.
package orchestrator
