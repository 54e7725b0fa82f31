package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"platen/internal/config"
	"platen/internal/history"
	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/pipeline"
	"platen/internal/services"
)

// WatchdogStopReason is recorded on jobs the monitor loop cancels.
const WatchdogStopReason = "cancelled by watchdog: exceeded max job duration"

// ShutdownStopReason is recorded on jobs cancelled during shutdown.
const ShutdownStopReason = "orchestrator shutting down"

// Orchestrator admission-controls conversion jobs and runs their workers.
type Orchestrator struct {
	cfg     *config.Config
	logger  *slog.Logger
	exec    *pipeline.Executor
	archive *history.Store

	mu     sync.Mutex
	jobs   map[string]*jobs.Job
	active map[string]struct{}
	stats  Stats

	runCtx  context.Context
	cancel  context.CancelFunc
	stop    chan struct{}
	loopWG  sync.WaitGroup
	jobWG   sync.WaitGroup
	started bool
}

// Option configures optional orchestrator behavior.
type Option func(*Orchestrator)

// WithHistory attaches the terminal-job archive. Snapshots are best-effort:
// an archive failure is logged and never fails the job.
func WithHistory(store *history.Store) Option {
	return func(o *Orchestrator) { o.archive = store }
}

// New constructs an orchestrator around the given executor.
func New(cfg *config.Config, exec *pipeline.Executor, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if cfg == nil || exec == nil {
		return nil, errors.New("orchestrator requires config and executor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &Orchestrator{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "orchestrator"),
		exec:   exec,
		jobs:   make(map[string]*jobs.Job),
		active: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Start launches the background maintenance loops.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return errors.New("orchestrator already running")
	}
	o.runCtx, o.cancel = context.WithCancel(ctx)
	// A fresh stop channel per Start keeps the orchestrator restartable
	// after Shutdown.
	o.stop = make(chan struct{})
	stop := o.stop
	o.started = true
	o.mu.Unlock()

	o.loopWG.Add(2)
	go o.cleanupLoop(stop)
	go o.monitorLoop(stop)

	o.logger.Info("orchestrator started",
		logging.Int("max_concurrent_jobs", o.cfg.Orchestrator.MaxConcurrentJobs),
		logging.Duration("max_job_duration", o.cfg.MaxJobDurationDuration()),
	)
	return nil
}

// StartConversion admits a new job, registers it, and dispatches its worker.
// It fails synchronously with a resource-limit error at the concurrency
// ceiling and with a duplicate error when the ID is already known; any
// registration failure leaves no partial state behind.
func (o *Orchestrator) StartConversion(inputPath, outputDir string, options jobs.Metadata, jobID string) (string, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		jobID = uuid.NewString()
	}

	if err := o.admissible(jobID); err != nil {
		return "", err
	}

	// Job construction does filesystem work; keep it outside the registry
	// lock so queries stay responsive, then re-check admission on insert.
	job, err := o.exec.CreateJob(inputPath, outputDir, options, jobID)
	if err != nil {
		return "", err
	}

	o.mu.Lock()
	if len(o.active) >= o.cfg.Orchestrator.MaxConcurrentJobs {
		o.mu.Unlock()
		o.exec.CleanupJob(jobID)
		return "", services.Wrap(services.ErrResourceLimit, "orchestrator", "start conversion",
			fmt.Sprintf("active job limit %d reached", o.cfg.Orchestrator.MaxConcurrentJobs), nil)
	}
	if _, exists := o.jobs[jobID]; exists {
		o.mu.Unlock()
		o.exec.CleanupJob(jobID)
		return "", services.Wrap(services.ErrDuplicateJob, "orchestrator", "start conversion",
			fmt.Sprintf("job %q already exists", jobID), nil)
	}
	o.jobs[jobID] = job
	o.active[jobID] = struct{}{}
	o.stats.Submitted++
	runCtx := o.runCtx
	o.mu.Unlock()

	if runCtx == nil {
		runCtx = context.Background()
	}

	o.jobWG.Add(1)
	go o.runJob(runCtx, job)

	o.logger.Info("job admitted",
		logging.String(logging.FieldEventType, "job_admitted"),
		logging.String(logging.FieldJobID, jobID),
		logging.String("input", inputPath),
	)
	return jobID, nil
}

// admissible fast-fails submissions that cannot be admitted: the ceiling is
// full or the ID is already registered. The same conditions are re-checked
// under the lock before insert.
func (o *Orchestrator) admissible(jobID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.active) >= o.cfg.Orchestrator.MaxConcurrentJobs {
		return services.Wrap(services.ErrResourceLimit, "orchestrator", "start conversion",
			fmt.Sprintf("active job limit %d reached", o.cfg.Orchestrator.MaxConcurrentJobs), nil)
	}
	if _, exists := o.jobs[jobID]; exists {
		return services.Wrap(services.ErrDuplicateJob, "orchestrator", "start conversion",
			fmt.Sprintf("job %q already exists", jobID), nil)
	}
	return nil
}

// runJob drives one job through the pipeline. The active slot is released
// exactly once no matter how the worker exits; panics are converted into a
// failed job instead of crashing the process.
func (o *Orchestrator) runJob(ctx context.Context, job *jobs.Job) {
	defer o.jobWG.Done()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("job worker panicked",
				logging.String(logging.FieldJobID, job.ID),
				logging.Any("panic", r),
			)
		}
		o.finishJob(job.ID)
	}()

	err := o.exec.ExecutePipeline(ctx, job)
	switch {
	case err == nil:
	case errors.Is(err, pipeline.ErrCancelled):
		o.logger.Info("job cancelled",
			logging.String(logging.FieldEventType, "job_cancelled"),
			logging.String(logging.FieldJobID, job.ID),
		)
	default:
		o.logger.Error("job failed",
			logging.String(logging.FieldEventType, "job_failed"),
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect job result for the failing stage"),
		)
	}
}

// finishJob releases the job's admission slot and updates statistics. It is
// idempotent: a job whose slot was already released (user or watchdog
// cancellation) is left untouched.
func (o *Orchestrator) finishJob(jobID string) {
	snap, _ := o.exec.Snapshot(jobID)

	o.mu.Lock()
	_, wasActive := o.active[jobID]
	if wasActive {
		delete(o.active, jobID)
		if snap != nil {
			switch snap.Status {
			case jobs.StatusCompleted:
				o.stats.Completed++
			case jobs.StatusCancelled:
				o.stats.Cancelled++
			default:
				o.stats.Failed++
			}
		} else {
			o.stats.Failed++
		}
	}
	o.mu.Unlock()

	if wasActive && snap != nil {
		o.recordHistory(snap)
	}
}

// CancelJob requests cooperative cancellation. It returns false when the job
// is unknown or already terminal; on success the admission slot is released
// and the cancellation counted.
func (o *Orchestrator) CancelJob(jobID string) bool {
	return o.cancelWithReason(jobID, "")
}

func (o *Orchestrator) cancelWithReason(jobID, reason string) bool {
	o.mu.Lock()
	_, known := o.jobs[jobID]
	o.mu.Unlock()
	if !known {
		return false
	}

	if !o.exec.CancelJobWithReason(jobID, reason) {
		return false
	}

	o.mu.Lock()
	if _, ok := o.active[jobID]; ok {
		delete(o.active, jobID)
		o.stats.Cancelled++
	}
	o.mu.Unlock()

	if snap, ok := o.exec.Snapshot(jobID); ok {
		o.recordHistory(snap)
	}
	o.logger.Info("job cancelled",
		logging.String(logging.FieldEventType, "job_cancel_requested"),
		logging.String(logging.FieldJobID, jobID),
		logging.String("reason", reason),
	)
	return true
}

// Shutdown stops the background loops, waits for them with a bounded grace
// period, and cancels every still-active job.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	if !o.started {
		o.mu.Unlock()
		return
	}
	o.started = false
	cancel := o.cancel
	o.cancel = nil
	stop := o.stop
	o.stop = nil
	o.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if cancel != nil {
		cancel()
	}
	waitBounded(&o.loopWG, 5*time.Second)

	o.mu.Lock()
	activeIDs := make([]string, 0, len(o.active))
	for id := range o.active {
		activeIDs = append(activeIDs, id)
	}
	o.mu.Unlock()

	for _, id := range activeIDs {
		o.cancelWithReason(id, ShutdownStopReason)
	}
	waitBounded(&o.jobWG, 5*time.Second)

	o.logger.Info("orchestrator stopped",
		logging.Int("cancelled_on_shutdown", len(activeIDs)),
	)
}

func (o *Orchestrator) recordHistory(snap *jobs.Job) {
	if o.archive == nil || snap == nil || !snap.IsTerminal() {
		return
	}
	if err := o.archive.Record(context.Background(), snap); err != nil {
		o.logger.Warn("failed to archive job snapshot",
			logging.String(logging.FieldJobID, snap.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check history database access"),
		)
	}
}

func waitBounded(wg *sync.WaitGroup, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
