package orchestrator

import "platen/internal/jobs"

// Stats aggregates lifetime orchestrator counters.
type Stats struct {
	Submitted int
	Completed int
	Failed    int
	Cancelled int
	Active    int
}

// Stats returns a copy of the lifetime counters plus the current active
// count.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	stats := o.stats
	stats.Active = len(o.active)
	return stats
}

// StatusCounts returns the number of known jobs per status.
func (o *Orchestrator) StatusCounts() map[jobs.Status]int {
	o.mu.Lock()
	ids := make([]string, 0, len(o.jobs))
	for id := range o.jobs {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	counts := make(map[jobs.Status]int)
	for _, id := range ids {
		if snap, ok := o.exec.Snapshot(id); ok {
			counts[snap.Status]++
		}
	}
	return counts
}

// Running reports whether the background loops are active.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started
}
