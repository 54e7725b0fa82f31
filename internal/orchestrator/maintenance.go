package orchestrator

import (
	"fmt"
	"time"

	"platen/internal/jobs"
	"platen/internal/logging"
)

const cleanupErrorBackoff = time.Minute

// CleanupCompletedJobs removes terminal jobs whose completion timestamp is
// older than the cutoff, cleaning up their directories. Only successful
// removals are counted.
func (o *Orchestrator) CleanupCompletedJobs(olderThanHours int) int {
	cutoff := time.Now().UTC().Add(-time.Duration(olderThanHours) * time.Hour)

	o.mu.Lock()
	ids := make([]string, 0, len(o.jobs))
	for id := range o.jobs {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	removed := 0
	for _, id := range ids {
		// A terminal job still holding its admission slot has a worker that
		// is mid-accounting; leave it for the next sweep.
		o.mu.Lock()
		_, stillActive := o.active[id]
		o.mu.Unlock()
		if stillActive {
			continue
		}

		// Status and completion time belong to the executor's lock domain;
		// read them from a snapshot, never off the shared job.
		snap, ok := o.exec.Snapshot(id)
		if !ok || !snap.IsTerminal() || snap.CompletedAt == nil {
			continue
		}
		if !snap.CompletedAt.Before(cutoff) {
			continue
		}
		if !o.exec.CleanupJob(id) {
			continue
		}
		o.mu.Lock()
		delete(o.jobs, id)
		o.mu.Unlock()
		removed++
	}
	if removed > 0 {
		o.logger.Info("expired terminal jobs",
			logging.String(logging.FieldEventType, "retention_cleanup"),
			logging.Int("removed", removed),
		)
	}
	return removed
}

// cleanupLoop expires old terminal jobs on the configured interval. A failed
// iteration backs off briefly instead of tightening the schedule; the loop
// itself never dies.
func (o *Orchestrator) cleanupLoop(stop <-chan struct{}) {
	defer o.loopWG.Done()
	interval := time.Duration(o.cfg.Orchestrator.CleanupInterval) * time.Second

	for {
		select {
		case <-stop:
			return
		case <-time.After(interval):
		}

		if err := o.runProtected(func() {
			o.CleanupCompletedJobs(o.cfg.Orchestrator.RetentionHours)
		}); err != nil {
			o.logger.Error("cleanup iteration failed",
				logging.String(logging.FieldEventType, "cleanup_iteration_failed"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check work and output directory permissions"),
			)
			select {
			case <-stop:
				return
			case <-time.After(cleanupErrorBackoff):
			}
		}
	}
}

// monitorLoop cancels running jobs that overran the wall-clock ceiling. This
// catches workers stuck inside a collaborator call regardless of any
// per-tool timeout.
func (o *Orchestrator) monitorLoop(stop <-chan struct{}) {
	defer o.loopWG.Done()
	interval := time.Duration(o.cfg.Orchestrator.MonitorInterval) * time.Second

	for {
		select {
		case <-stop:
			return
		case <-time.After(interval):
		}

		if err := o.runProtected(o.reapStuckJobs); err != nil {
			o.logger.Error("monitor iteration failed",
				logging.String(logging.FieldEventType, "monitor_iteration_failed"),
				logging.Error(err),
			)
		}
	}
}

func (o *Orchestrator) reapStuckJobs() {
	maxDuration := o.cfg.MaxJobDurationDuration()

	o.mu.Lock()
	ids := make([]string, 0, len(o.active))
	for id := range o.active {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	for _, id := range ids {
		snap, ok := o.exec.Snapshot(id)
		if !ok || snap.Status != jobs.StatusRunning || snap.StartedAt == nil {
			continue
		}
		elapsed := time.Since(*snap.StartedAt)
		if elapsed <= maxDuration {
			continue
		}
		if o.cancelWithReason(id, WatchdogStopReason) {
			o.logger.Warn("stuck job cancelled",
				logging.String(logging.FieldEventType, "stuck_job_cancelled"),
				logging.String(logging.FieldJobID, id),
				logging.Duration("elapsed", elapsed),
				logging.Duration("max_job_duration", maxDuration),
				logging.String(logging.FieldErrorHint, "raise orchestrator.max_job_duration if large documents legitimately need longer"),
			)
		}
	}
}

// runProtected executes one loop iteration, converting a panic into an error
// so the loop survives.
func (o *Orchestrator) runProtected(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("iteration panicked: %v", r)
		}
	}()
	fn()
	return nil
}
