package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"platen/internal/jobs"
	"platen/internal/pipeline"
	"platen/internal/services"
	"platen/internal/testsupport"
)

func newExecutor(t *testing.T, collabs pipeline.Collaborators) *pipeline.Executor {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	exec, err := pipeline.NewExecutor(cfg, nil, collabs)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return exec
}

func createJob(t *testing.T, exec *pipeline.Executor, id string) *jobs.Job {
	t.Helper()
	input := testsupport.WriteTeXSource(t, filepath.Join(t.TempDir(), "doc.tex"))
	job, err := exec.CreateJob(input, "", nil, id)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return job
}

func TestNewExecutorRequiresCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := pipeline.NewExecutor(cfg, nil, pipeline.Collaborators{})
	if err == nil {
		t.Fatal("expected error for missing collaborators")
	}
}

func TestCreateJobRejectsMissingInput(t *testing.T) {
	exec := newExecutor(t, testsupport.AllOKCollaborators())
	_, err := exec.CreateJob(filepath.Join(t.TempDir(), "missing.tex"), "", nil, "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateJobRejectsDuplicateID(t *testing.T) {
	exec := newExecutor(t, testsupport.AllOKCollaborators())
	input := testsupport.WriteTeXSource(t, filepath.Join(t.TempDir(), "doc.tex"))

	if _, err := exec.CreateJob(input, "", nil, "fixed-id"); err != nil {
		t.Fatalf("first CreateJob: %v", err)
	}
	_, err := exec.CreateJob(input, "", nil, "fixed-id")
	if !errors.Is(err, services.ErrDuplicateJob) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestCreateJobMintsIDAndDirs(t *testing.T) {
	exec := newExecutor(t, testsupport.AllOKCollaborators())
	job := createJob(t, exec, "")

	if job.ID == "" {
		t.Fatal("expected generated job ID")
	}
	if len(job.Stages) != 4 {
		t.Fatalf("expected 4 stage records, got %d", len(job.Stages))
	}
	for _, rec := range job.Stages {
		if rec.Status != jobs.StageStatusPending {
			t.Fatalf("stage %s not pending: %s", rec.Name, rec.Status)
		}
	}
	if _, err := os.Stat(job.OutputDir); err != nil {
		t.Fatalf("output dir missing: %v", err)
	}
}

func TestExecutePipelineSuccess(t *testing.T) {
	exec := newExecutor(t, testsupport.AllOKCollaborators())
	job := createJob(t, exec, "")

	if err := exec.ExecutePipeline(context.Background(), job); err != nil {
		t.Fatalf("ExecutePipeline: %v", err)
	}

	snap, ok := exec.Snapshot(job.ID)
	if !ok {
		t.Fatal("job missing from executor")
	}
	if snap.Status != jobs.StatusCompleted || snap.CurrentStage != jobs.StageCompleted {
		t.Fatalf("status=%s stage=%s", snap.Status, snap.CurrentStage)
	}
	if len(snap.OutputFiles) != 1 || snap.OutputFiles[0] != "doc.html" {
		t.Fatalf("OutputFiles = %v", snap.OutputFiles)
	}
	if snap.QualityScore == nil || *snap.QualityScore != 100 {
		t.Fatalf("QualityScore = %v", snap.QualityScore)
	}

	result, err := exec.Result(job.ID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if !result.Success || result.MainOutput != "doc.html" {
		t.Fatalf("result = %+v", result)
	}
	if len(result.CompletedStages) != 4 {
		t.Fatalf("CompletedStages = %v", result.CompletedStages)
	}
}

func TestCompileFailureDegradesToFallback(t *testing.T) {
	collabs := testsupport.AllOKCollaborators()
	collabs.Compiler = &testsupport.StubCollaborator{
		StageName: "compile",
		Outcome:   pipeline.Recoverable(errors.New("latexmk exited 1"), nil),
	}
	exec := newExecutor(t, collabs)
	job := createJob(t, exec, "")

	if err := exec.ExecutePipeline(context.Background(), job); err != nil {
		t.Fatalf("ExecutePipeline: %v", err)
	}

	snap, _ := exec.Snapshot(job.ID)
	if snap.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want completed", snap.Status)
	}
	compile := snap.Stages[0]
	if compile.Status != jobs.StageStatusSkipped {
		t.Fatalf("compile status = %s, want skipped", compile.Status)
	}
	if used, _ := compile.Metadata[jobs.MetaFallbackUsed].(bool); !used {
		t.Fatal("expected fallback_used on the skipped record")
	}
	if snap.Stages[1].Status != jobs.StageStatusCompleted {
		t.Fatalf("markup status = %s", snap.Stages[1].Status)
	}
}

func TestCompileFallbackRunsSourceCheck(t *testing.T) {
	collabs := testsupport.AllOKCollaborators()
	collabs.Compiler = &testsupport.StubCollaborator{
		StageName: "compile",
		Outcome:   pipeline.Recoverable(errors.New("compiler unavailable"), nil),
	}
	exec := newExecutor(t, collabs)

	// Unbalanced braces and a missing \end{document} should surface as
	// fallback warnings.
	input := filepath.Join(t.TempDir(), "broken.tex")
	testsupport.WriteFile(t, input, "\\documentclass{article}\n\\begin{document}\n{unclosed\n")
	job, err := exec.CreateJob(input, "", nil, "")
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	if err := exec.ExecutePipeline(context.Background(), job); err != nil {
		t.Fatalf("ExecutePipeline: %v", err)
	}

	snap, _ := exec.Snapshot(job.ID)
	if len(snap.Stages[0].Warnings()) == 0 {
		t.Fatal("expected source check warnings on the skipped compile record")
	}
	if _, ok := snap.Metadata["source_check"]; !ok {
		t.Fatal("expected source_check report in job metadata")
	}
}

func TestFatalMarkupFailureAbortsJob(t *testing.T) {
	collabs := testsupport.AllOKCollaborators()
	collabs.MarkupConverter = &testsupport.StubCollaborator{
		StageName: "markup",
		Outcome:   pipeline.Fatal(errors.New("pandoc exited 2"), nil),
	}
	exec := newExecutor(t, collabs)
	job := createJob(t, exec, "")

	err := exec.ExecutePipeline(context.Background(), job)
	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != "markup" {
		t.Fatalf("expected markup stage error, got %v", err)
	}

	snap, _ := exec.Snapshot(job.ID)
	if snap.Status != jobs.StatusFailed {
		t.Fatalf("status = %s", snap.Status)
	}
	if snap.Stages[1].Status != jobs.StageStatusFailed {
		t.Fatalf("markup record = %s", snap.Stages[1].Status)
	}
	// Later stages never start.
	for _, rec := range snap.Stages[2:] {
		if rec.Status != jobs.StageStatusPending {
			t.Fatalf("stage %s = %s, want pending", rec.Name, rec.Status)
		}
	}

	result, err := exec.Result(job.ID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.Success || len(result.Errors) == 0 {
		t.Fatalf("result = %+v", result)
	}
}

func TestRecoverableOutcomeOnNonRecoverableStageIsFatal(t *testing.T) {
	collabs := testsupport.AllOKCollaborators()
	collabs.Validator = &testsupport.StubCollaborator{
		StageName: "validate",
		Outcome:   pipeline.Recoverable(errors.New("should not degrade"), nil),
	}
	exec := newExecutor(t, collabs)
	job := createJob(t, exec, "")

	if err := exec.ExecutePipeline(context.Background(), job); err == nil {
		t.Fatal("expected failure when a non-recoverable stage degrades")
	}
	snap, _ := exec.Snapshot(job.ID)
	if snap.Status != jobs.StatusFailed {
		t.Fatalf("status = %s", snap.Status)
	}
}

func TestCancelBetweenStages(t *testing.T) {
	collabs := testsupport.AllOKCollaborators()
	var execRef *pipeline.Executor
	var jobID string
	collabs.Compiler = &testsupport.StubCollaborator{
		StageName: "compile",
		RunFunc: func(ctx context.Context, req pipeline.Request) pipeline.Outcome {
			// Cancellation lands while the compile stage is in flight.
			execRef.CancelJob(jobID)
			return pipeline.OK(nil)
		},
	}
	exec := newExecutor(t, collabs)
	execRef = exec
	job := createJob(t, exec, "")
	jobID = job.ID

	err := exec.ExecutePipeline(context.Background(), job)
	if !errors.Is(err, pipeline.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}

	snap, _ := exec.Snapshot(job.ID)
	if snap.Status != jobs.StatusCancelled {
		t.Fatalf("status = %s", snap.Status)
	}
	if snap.Stages[0].Status != jobs.StageStatusCancelled {
		t.Fatalf("compile record = %s, want cancelled", snap.Stages[0].Status)
	}
	if snap.Stages[1].Status != jobs.StageStatusPending {
		t.Fatalf("markup record = %s, want pending", snap.Stages[1].Status)
	}
}

func TestCancelJobSemantics(t *testing.T) {
	exec := newExecutor(t, testsupport.AllOKCollaborators())
	job := createJob(t, exec, "")

	if exec.CancelJob("unknown") {
		t.Fatal("cancel of unknown job must return false")
	}
	if !exec.CancelJob(job.ID) {
		t.Fatal("cancel of pending job must return true")
	}
	if exec.CancelJob(job.ID) {
		t.Fatal("second cancel must return false")
	}

	snap, _ := exec.Snapshot(job.ID)
	if snap.Status != jobs.StatusCancelled {
		t.Fatalf("status = %s", snap.Status)
	}

	// A cancelled job never starts its pipeline.
	if err := exec.ExecutePipeline(context.Background(), job); err != nil {
		t.Fatalf("ExecutePipeline on cancelled job: %v", err)
	}
	snap, _ = exec.Snapshot(job.ID)
	if snap.StartedAt != nil {
		t.Fatal("cancelled job must not be marked running")
	}
}

func TestPanickingCollaboratorFailsJob(t *testing.T) {
	collabs := testsupport.AllOKCollaborators()
	collabs.MarkupConverter = &testsupport.StubCollaborator{
		StageName: "markup",
		RunFunc: func(ctx context.Context, req pipeline.Request) pipeline.Outcome {
			panic("collaborator bug")
		},
	}
	exec := newExecutor(t, collabs)
	job := createJob(t, exec, "")

	err := exec.ExecutePipeline(context.Background(), job)
	if !errors.Is(err, services.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	snap, _ := exec.Snapshot(job.ID)
	if snap.Status != jobs.StatusFailed {
		t.Fatalf("status = %s", snap.Status)
	}
}

func TestProgressHeuristic(t *testing.T) {
	blockCompile := make(chan struct{})
	compileStarted := make(chan struct{})
	collabs := testsupport.AllOKCollaborators()
	collabs.Compiler = &testsupport.StubCollaborator{
		StageName: "compile",
		RunFunc: func(ctx context.Context, req pipeline.Request) pipeline.Outcome {
			close(compileStarted)
			<-blockCompile
			return pipeline.OK(nil)
		},
	}
	exec := newExecutor(t, collabs)
	job := createJob(t, exec, "")

	progress, err := exec.GetProgress(job.ID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if progress.Percent != 0 {
		t.Fatalf("pending job percent = %.1f, want 0", progress.Percent)
	}

	done := make(chan error, 1)
	go func() { done <- exec.ExecutePipeline(context.Background(), job) }()
	<-compileStarted

	progress, err = exec.GetProgress(job.ID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if progress.Percent >= 100 {
		t.Fatalf("running job percent = %.1f, must stay below 100", progress.Percent)
	}
	if progress.StageName != "compile" {
		t.Fatalf("StageName = %q", progress.StageName)
	}

	close(blockCompile)
	if err := <-done; err != nil {
		t.Fatalf("ExecutePipeline: %v", err)
	}

	progress, err = exec.GetProgress(job.ID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if progress.Percent != 100 {
		t.Fatalf("terminal percent = %.1f, want 100", progress.Percent)
	}
}

func TestResultRequiresTerminalJob(t *testing.T) {
	exec := newExecutor(t, testsupport.AllOKCollaborators())
	job := createJob(t, exec, "")

	if _, err := exec.Result(job.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for pending job, got %v", err)
	}
	if _, err := exec.Result("unknown"); !errors.Is(err, services.ErrJobNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCleanupJobRemovesState(t *testing.T) {
	exec := newExecutor(t, testsupport.AllOKCollaborators())
	job := createJob(t, exec, "")
	if err := exec.ExecutePipeline(context.Background(), job); err != nil {
		t.Fatalf("ExecutePipeline: %v", err)
	}

	if !exec.CleanupJob(job.ID) {
		t.Fatal("CleanupJob returned false for known job")
	}
	if _, ok := exec.Snapshot(job.ID); ok {
		t.Fatal("job still registered after cleanup")
	}
	if _, err := os.Stat(job.OutputDir); !os.IsNotExist(err) {
		t.Fatalf("output dir still present: %v", err)
	}
	if exec.CleanupJob(job.ID) {
		t.Fatal("second cleanup must return false")
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	exec := newExecutor(t, testsupport.AllOKCollaborators())
	job := createJob(t, exec, "")

	snap, _ := exec.Snapshot(job.ID)
	snap.Status = jobs.StatusFailed
	snap.Stages[0].Complete()

	fresh, _ := exec.Snapshot(job.ID)
	if fresh.Status != jobs.StatusPending || fresh.Stages[0].Status != jobs.StageStatusPending {
		t.Fatal("snapshot mutation leaked into executor state")
	}
}
