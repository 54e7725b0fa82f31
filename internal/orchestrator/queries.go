package orchestrator

import (
	"sort"

	"platen/internal/jobs"
	"platen/internal/services"
)

// GetStatus returns the job's lifecycle status.
func (o *Orchestrator) GetStatus(jobID string) (jobs.Status, error) {
	snap, ok := o.snapshot(jobID)
	if !ok {
		return "", services.Wrap(services.ErrJobNotFound, "orchestrator", "status", jobID, nil)
	}
	return snap.Status, nil
}

// GetProgress computes the job's progress estimate on demand; nothing is
// cached between calls.
func (o *Orchestrator) GetProgress(jobID string) (jobs.Progress, error) {
	o.mu.Lock()
	_, known := o.jobs[jobID]
	o.mu.Unlock()
	if !known {
		return jobs.Progress{}, services.Wrap(services.ErrJobNotFound, "orchestrator", "progress", jobID, nil)
	}
	return o.exec.GetProgress(jobID)
}

// GetResult returns the populated result for a completed or failed job.
func (o *Orchestrator) GetResult(jobID string) (jobs.Result, error) {
	o.mu.Lock()
	_, known := o.jobs[jobID]
	o.mu.Unlock()
	if !known {
		return jobs.Result{}, services.Wrap(services.ErrJobNotFound, "orchestrator", "result", jobID, nil)
	}
	return o.exec.Result(jobID)
}

// GetJob returns a deep copy of the job for inspection.
func (o *Orchestrator) GetJob(jobID string) (*jobs.Job, error) {
	snap, ok := o.snapshot(jobID)
	if !ok {
		return nil, services.Wrap(services.ErrJobNotFound, "orchestrator", "get job", jobID, nil)
	}
	return snap, nil
}

// ListJobs returns jobs sorted newest-first, optionally filtered by status,
// then paginated. Pagination is a stable slice over the sorted view.
func (o *Orchestrator) ListJobs(statusFilter jobs.Status, limit, offset int) []*jobs.Job {
	o.mu.Lock()
	ids := make([]string, 0, len(o.jobs))
	for id := range o.jobs {
		ids = append(ids, id)
	}
	o.mu.Unlock()

	snaps := make([]*jobs.Job, 0, len(ids))
	for _, id := range ids {
		snap, ok := o.exec.Snapshot(id)
		if !ok {
			continue
		}
		if statusFilter != "" && snap.Status != statusFilter {
			continue
		}
		snaps = append(snaps, snap)
	}

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].ID > snaps[j].ID
		}
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(snaps) {
		return nil
	}
	snaps = snaps[offset:]
	if limit > 0 && limit < len(snaps) {
		snaps = snaps[:limit]
	}
	return snaps
}

func (o *Orchestrator) snapshot(jobID string) (*jobs.Job, bool) {
	o.mu.Lock()
	_, known := o.jobs[jobID]
	o.mu.Unlock()
	if !known {
		return nil, false
	}
	return o.exec.Snapshot(jobID)
}
