package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"platen/internal/config"
	"platen/internal/fileutil"
	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/services"
)

// ErrCancelled is returned by ExecutePipeline when a cooperative cancellation
// was observed between stages.
var ErrCancelled = errors.New("job cancelled")

const stageCount = 4

type stageDef struct {
	name         string
	running      jobs.Stage
	done         jobs.Stage
	share        float64
	recoverable  bool
	timeout      time.Duration
	collaborator Collaborator
}

// Executor drives jobs through the fixed stage sequence.
type Executor struct {
	cfg    *config.Config
	logger *slog.Logger
	plan   []stageDef

	mu   sync.Mutex
	jobs map[string]*jobs.Job
}

// NewExecutor builds an executor bound to the provided collaborators.
func NewExecutor(cfg *config.Config, logger *slog.Logger, collabs Collaborators) (*Executor, error) {
	if cfg == nil {
		return nil, errors.New("executor requires config")
	}
	if err := collabs.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		plan: []stageDef{
			{
				name:         "compile",
				running:      jobs.StageCompilingPrimary,
				done:         jobs.StageCompiledPrimary,
				share:        0.20,
				recoverable:  true,
				timeout:      cfg.ToolTimeout(cfg.Tools.Compiler),
				collaborator: collabs.Compiler,
			},
			{
				name:         "markup",
				running:      jobs.StageConvertingMarkup,
				done:         jobs.StageConvertedMarkup,
				share:        0.70,
				timeout:      cfg.ToolTimeout(cfg.Tools.MarkupConverter),
				collaborator: collabs.MarkupConverter,
			},
			{
				name:         "postprocess",
				running:      jobs.StagePostProcessing,
				done:         jobs.StagePostProcessed,
				share:        0.05,
				timeout:      cfg.ToolTimeout(cfg.Tools.HTMLCleaner),
				collaborator: collabs.PostProcessor,
			},
			{
				name:         "validate",
				running:      jobs.StageValidating,
				done:         jobs.StageCompleted,
				share:        0.05,
				timeout:      cfg.ToolTimeout(cfg.Tools.VectorConverter),
				collaborator: collabs.Validator,
			},
		},
		jobs: make(map[string]*jobs.Job),
	}, nil
}

// StageNames returns the fixed stage names in pipeline order.
func (e *Executor) StageNames() []string {
	names := make([]string, len(e.plan))
	for i, def := range e.plan {
		names[i] = def.name
	}
	return names
}

// CreateJob validates the request, allocates the job with its four pending
// stage records, and registers it in the executor's map.
func (e *Executor) CreateJob(inputPath, outputDir string, options jobs.Metadata, id string) (*jobs.Job, error) {
	inputPath = strings.TrimSpace(inputPath)
	if !fileutil.IsRegularFile(inputPath) {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "create job",
			fmt.Sprintf("input %q is not a regular file", inputPath), nil)
	}

	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}

	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		outputDir = filepath.Join(e.cfg.Paths.OutputDir, id)
	}

	if err := fileutil.EnsureDir(outputDir); err != nil {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "create job", "output directory not creatable", err)
	}
	if err := fileutil.EnsureDir(e.workDir(id)); err != nil {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "create job", "work directory not creatable", err)
	}

	job := &jobs.Job{
		ID:           id,
		InputPath:    inputPath,
		OutputDir:    outputDir,
		Options:      options.Clone(),
		Status:       jobs.StatusPending,
		CurrentStage: jobs.StageInitialized,
		CreatedAt:    time.Now().UTC(),
		Metadata:     jobs.Metadata{},
		MaxRetries:   e.cfg.Orchestrator.MaxRetries,
	}
	for _, def := range e.plan {
		job.Stages = append(job.Stages, jobs.NewStageRecord(def.name))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.jobs[id]; exists {
		return nil, services.Wrap(services.ErrDuplicateJob, "pipeline", "create job",
			fmt.Sprintf("job %q already registered", id), nil)
	}
	e.jobs[id] = job
	return job, nil
}

// ExecutePipeline runs the job's stages in order, applying the
// recoverable/fatal policy per stage. The job is left in a terminal status on
// every exit path, including unexpected panics, which are converted into a
// failed job rather than propagated.
func (e *Executor) ExecutePipeline(ctx context.Context, job *jobs.Job) (err error) {
	logger := e.logger.With(logging.String(logging.FieldJobID, job.ID))

	defer func() {
		if r := recover(); r != nil {
			internal := services.Wrap(services.ErrInternal, "pipeline", "execute",
				fmt.Sprintf("unexpected failure: %v", r), nil)
			e.failJob(job, nil, services.Details(internal).Message)
			logger.Error("pipeline panicked", logging.Error(internal))
			err = internal
		}
	}()

	e.mu.Lock()
	if job.IsTerminal() {
		e.mu.Unlock()
		return nil
	}
	job.SetRunning()
	e.mu.Unlock()

	start := time.Now()
	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.String("input", job.InputPath),
	)

	for i, def := range e.plan {
		if e.observeCancellation(job) {
			logger.Info("pipeline stopped after cancellation",
				logging.String(logging.FieldEventType, "pipeline_cancelled"),
				logging.String(logging.FieldStage, def.name),
			)
			return ErrCancelled
		}

		if err := e.runStage(ctx, logger, job, i, def); err != nil {
			if errors.Is(err, ErrCancelled) {
				return ErrCancelled
			}
			logger.Error("pipeline failed",
				logging.String(logging.FieldEventType, "pipeline_failure"),
				logging.String(logging.FieldStage, def.name),
				logging.Error(err),
				logging.Duration("elapsed", time.Since(start)),
			)
			return err
		}
	}

	e.mu.Lock()
	if !job.IsTerminal() {
		job.SetCompleted()
	}
	e.mu.Unlock()

	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Duration("elapsed", time.Since(start)),
		logging.Int("output_files", len(job.OutputFiles)),
	)
	return nil
}

func (e *Executor) runStage(ctx context.Context, logger *slog.Logger, job *jobs.Job, index int, def stageDef) error {
	e.mu.Lock()
	record := job.Stages[index]
	record.Start()
	job.CurrentStage = def.running
	e.mu.Unlock()

	stageLogger := logger.With(logging.String(logging.FieldStage, def.name))
	stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
	stageStart := time.Now()

	stageCtx := services.WithStage(services.WithJobID(ctx, job.ID), def.name)
	outcome := def.collaborator.Run(stageCtx, Request{
		JobID:     job.ID,
		InputPath: job.InputPath,
		WorkDir:   e.workDir(job.ID),
		OutputDir: job.OutputDir,
		Options:   job.Options,
		Timeout:   def.timeout,
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	// A cancellation that landed mid-stage already cancelled the running
	// record; do not overwrite the terminal state.
	if job.Status == jobs.StatusCancelled {
		return ErrCancelled
	}

	mergeMetadata(record, outcome.Metadata)

	switch outcome.Kind {
	case OutcomeOK:
		record.Complete()
		job.CurrentStage = def.done
		e.harvestArtifacts(job, outcome.Metadata)
		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
		return nil

	case OutcomeRecoverable:
		if !def.recoverable {
			// Collaborator misuse: only the compile stage may degrade.
			message := services.Details(outcome.Err).Message
			record.Fail(message)
			job.SetFailed(message)
			return &StageError{Stage: def.name, Err: outcome.Err}
		}
		reason := services.Details(outcome.Err).Message
		record.Skip(reason)
		warnings := record.Warnings()
		if sanity := CheckSourceSanity(job.InputPath); len(sanity.Warnings) > 0 || len(sanity.Errors) > 0 {
			warnings = append(warnings, sanity.Warnings...)
			warnings = append(warnings, sanity.Errors...)
			job.Metadata["source_check"] = sanity
		}
		if len(warnings) > 0 {
			record.Metadata[jobs.MetaWarnings] = warnings
		}
		job.CurrentStage = def.done
		stageLogger.Warn("stage skipped, continuing with fallback",
			logging.String(logging.FieldEventType, "stage_fallback"),
			logging.String("reason", reason),
			logging.String(logging.FieldErrorHint, "markup conversion proceeds without the compiled artifact"),
		)
		return nil

	default:
		message := services.Details(outcome.Err).Message
		record.Fail(message)
		job.SetFailed(message)
		stageLogger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Error(outcome.Err),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
		return &StageError{Stage: def.name, Err: outcome.Err}
	}
}

// harvestArtifacts pulls well-known artifact keys from collaborator metadata
// into the job's typed fields.
func (e *Executor) harvestArtifacts(job *jobs.Job, meta jobs.Metadata) {
	if meta == nil {
		return
	}
	if files, ok := meta["output_files"].([]string); ok {
		job.OutputFiles = append(job.OutputFiles, files...)
	}
	if assets, ok := meta["assets"].([]string); ok {
		job.Assets = append(job.Assets, assets...)
	}
	if score, ok := meta["quality_score"].(float64); ok {
		job.QualityScore = &score
	}
}

func mergeMetadata(record *jobs.StageRecord, meta jobs.Metadata) {
	if record.Metadata == nil {
		record.Metadata = jobs.Metadata{}
	}
	for k, v := range meta {
		record.Metadata[k] = v
	}
}

func (e *Executor) observeCancellation(job *jobs.Job) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return job.Status == jobs.StatusCancelled
}

func (e *Executor) failJob(job *jobs.Job, record *jobs.StageRecord, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if job.IsTerminal() {
		return
	}
	if record == nil {
		record = job.RunningStage()
	}
	if record != nil {
		record.Fail(message)
	}
	job.SetFailed(message)
}

// CancelJob marks a job cancelled. It is a no-op returning false when the job
// is unknown or already terminal. Cancellation is cooperative: an in-flight
// collaborator call runs to its own timeout before the worker notices.
func (e *Executor) CancelJob(jobID string) bool {
	return e.cancelWithReason(jobID, "")
}

// CancelJobWithReason behaves like CancelJob but records why the job was
// cancelled (used by the stuck-job monitor).
func (e *Executor) CancelJobWithReason(jobID, reason string) bool {
	return e.cancelWithReason(jobID, reason)
}

func (e *Executor) cancelWithReason(jobID, reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[jobID]
	if !ok || job.IsTerminal() {
		return false
	}
	if running := job.RunningStage(); running != nil {
		running.Cancel()
	}
	job.SetCancelled(reason)
	return true
}

// CleanupJob removes the job's work and output directories and drops it from
// the executor's map. Returns false when the job is unknown.
func (e *Executor) CleanupJob(jobID string) bool {
	e.mu.Lock()
	job, ok := e.jobs[jobID]
	if ok {
		delete(e.jobs, jobID)
	}
	e.mu.Unlock()
	if !ok {
		return false
	}

	if err := fileutil.RemoveTree(e.workDir(jobID)); err != nil {
		e.logger.Warn("failed to remove work directory",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err),
		)
	}
	if err := fileutil.RemoveTree(job.OutputDir); err != nil {
		e.logger.Warn("failed to remove output directory",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err),
		)
	}
	return true
}

// Snapshot returns a deep copy of the job safe for readers.
func (e *Executor) Snapshot(jobID string) (*jobs.Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[jobID]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// Result assembles the terminal result for a job. Only completed or failed
// jobs yield a populated result.
func (e *Executor) Result(jobID string) (jobs.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[jobID]
	if !ok {
		return jobs.Result{}, services.Wrap(services.ErrJobNotFound, "pipeline", "result", jobID, nil)
	}
	switch job.Status {
	case jobs.StatusCompleted, jobs.StatusFailed:
		return jobs.BuildResult(job), nil
	default:
		return jobs.Result{}, services.Wrap(services.ErrValidation, "pipeline", "result",
			fmt.Sprintf("job %s has not finished (status %s)", jobID, job.Status), nil)
	}
}

func (e *Executor) workDir(jobID string) string {
	return filepath.Join(e.cfg.Paths.WorkDir, jobID)
}
