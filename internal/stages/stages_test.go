package stages

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"platen/internal/jobs"
	"platen/internal/pipeline"
	"platen/internal/services"
	"platen/internal/testsupport"
)

func newRequest(t *testing.T) pipeline.Request {
	t.Helper()
	base := t.TempDir()
	workDir := filepath.Join(base, "work")
	outputDir := filepath.Join(base, "out")
	for _, dir := range []string{workDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return pipeline.Request{
		JobID:     "job-1",
		InputPath: testsupport.WriteTeXSource(t, filepath.Join(base, "doc.tex")),
		WorkDir:   workDir,
		OutputDir: outputDir,
		Options:   jobs.Metadata{},
		Timeout:   5 * time.Second,
	}
}

func collaboratorsWith(t *testing.T, runner services.CommandRunner) pipeline.Collaborators {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return NewCollaborators(cfg, runner, nil)
}

func TestCompilerSuccess(t *testing.T) {
	req := newRequest(t)
	runner := &testsupport.StubRunner{
		OnRun: func(dir, binary string, args []string) {
			// latexmk drops the PDF into the work directory.
			testsupport.WriteFile(t, filepath.Join(req.WorkDir, "doc.pdf"), "%PDF-1.5")
		},
	}
	collabs := collaboratorsWith(t, runner)

	outcome := collabs.Compiler.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeOK {
		t.Fatalf("kind = %v, err = %v", outcome.Kind, outcome.Err)
	}
	if outcome.Metadata["pdf_file"] == "" {
		t.Fatal("expected pdf_file metadata")
	}
	if len(runner.Invoked) != 1 || runner.Invoked[0] != "latexmk" {
		t.Fatalf("invoked = %v", runner.Invoked)
	}
}

func TestCompilerFailureIsRecoverable(t *testing.T) {
	req := newRequest(t)
	runner := &testsupport.StubRunner{
		Errs: map[string]error{
			"latexmk": services.Wrap(services.ErrExternalTool, "", "latexmk", "exit status 1", nil),
		},
	}
	collabs := collaboratorsWith(t, runner)

	outcome := collabs.Compiler.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeRecoverable {
		t.Fatalf("kind = %v", outcome.Kind)
	}
	if !errors.Is(outcome.Err, services.ErrExternalTool) {
		t.Fatalf("err = %v", outcome.Err)
	}
}

func TestCompilerMissingPDFIsRecoverable(t *testing.T) {
	req := newRequest(t)
	collabs := collaboratorsWith(t, &testsupport.StubRunner{})

	outcome := collabs.Compiler.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeRecoverable {
		t.Fatalf("kind = %v", outcome.Kind)
	}
}

func TestCompilerCollectsWarnings(t *testing.T) {
	req := newRequest(t)
	runner := &testsupport.StubRunner{
		Results: map[string]services.CommandResult{
			"latexmk": {Stdout: "LaTeX Warning: undefined reference\nRerun to get cross-references right\nplain line"},
		},
		OnRun: func(dir, binary string, args []string) {
			testsupport.WriteFile(t, filepath.Join(req.WorkDir, "doc.pdf"), "%PDF-1.5")
		},
	}
	collabs := collaboratorsWith(t, runner)

	outcome := collabs.Compiler.Run(context.Background(), req)
	warnings, _ := outcome.Metadata[jobs.MetaWarnings].([]string)
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestMarkupConverterSuccess(t *testing.T) {
	req := newRequest(t)
	req.Options["title"] = "My Paper"
	var gotArgs []string
	runner := &testsupport.StubRunner{
		OnRun: func(dir, binary string, args []string) {
			gotArgs = args
			testsupport.WriteFile(t, filepath.Join(req.OutputDir, "doc.html"), "<html><body>x</body></html>")
		},
	}
	collabs := collaboratorsWith(t, runner)

	outcome := collabs.MarkupConverter.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeOK {
		t.Fatalf("kind = %v, err = %v", outcome.Kind, outcome.Err)
	}
	files, _ := outcome.Metadata["output_files"].([]string)
	if len(files) != 1 || filepath.Base(files[0]) != "doc.html" {
		t.Fatalf("output_files = %v", files)
	}

	foundTitle := false
	for _, arg := range gotArgs {
		if arg == "--metadata=title:My Paper" {
			foundTitle = true
		}
	}
	if !foundTitle {
		t.Fatalf("title option not forwarded: %v", gotArgs)
	}
}

func TestMarkupConverterFailureIsFatal(t *testing.T) {
	req := newRequest(t)
	runner := &testsupport.StubRunner{
		Errs: map[string]error{
			"pandoc": services.Wrap(services.ErrExternalTool, "", "pandoc", "exit status 2", nil),
		},
	}
	collabs := collaboratorsWith(t, runner)

	outcome := collabs.MarkupConverter.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeFatal {
		t.Fatalf("kind = %v", outcome.Kind)
	}
}

func TestMarkupConverterMissingOutputIsFatal(t *testing.T) {
	req := newRequest(t)
	collabs := collaboratorsWith(t, &testsupport.StubRunner{})

	outcome := collabs.MarkupConverter.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeFatal {
		t.Fatalf("kind = %v", outcome.Kind)
	}
}

func TestPostProcessorCleansAndCollectsAssets(t *testing.T) {
	req := newRequest(t)
	testsupport.WriteFile(t, filepath.Join(req.OutputDir, "doc.html"), "<html><body>x</body></html>")
	testsupport.WriteFile(t, filepath.Join(req.WorkDir, "figure1.png"), "png-bytes")
	runner := &testsupport.StubRunner{}
	collabs := collaboratorsWith(t, runner)

	outcome := collabs.PostProcessor.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeOK {
		t.Fatalf("kind = %v, err = %v", outcome.Kind, outcome.Err)
	}
	assets, _ := outcome.Metadata["assets"].([]string)
	if len(assets) != 1 || filepath.Base(assets[0]) != "figure1.png" {
		t.Fatalf("assets = %v", assets)
	}
	if _, err := os.Stat(filepath.Join(req.OutputDir, "assets", "figure1.png")); err != nil {
		t.Fatalf("asset not copied: %v", err)
	}
}

func TestPostProcessorToleratesCleanerWarnings(t *testing.T) {
	req := newRequest(t)
	testsupport.WriteFile(t, filepath.Join(req.OutputDir, "doc.html"), "<html><body>x</body></html>")
	runner := &testsupport.StubRunner{
		Results: map[string]services.CommandResult{
			"tidy": {ExitCode: 1, Stderr: "Warning: missing doctype"},
		},
		Errs: map[string]error{
			"tidy": services.Wrap(services.ErrExternalTool, "", "tidy", "exit status 1", nil),
		},
	}
	collabs := collaboratorsWith(t, runner)

	outcome := collabs.PostProcessor.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeOK {
		t.Fatalf("kind = %v, err = %v", outcome.Kind, outcome.Err)
	}
	warnings, _ := outcome.Metadata[jobs.MetaWarnings].([]string)
	if len(warnings) == 0 {
		t.Fatal("expected cleaner warnings to be recorded")
	}
}

func TestPostProcessorHardCleanerFailureIsFatal(t *testing.T) {
	req := newRequest(t)
	testsupport.WriteFile(t, filepath.Join(req.OutputDir, "doc.html"), "<html><body>x</body></html>")
	runner := &testsupport.StubRunner{
		Results: map[string]services.CommandResult{
			"tidy": {ExitCode: 2},
		},
		Errs: map[string]error{
			"tidy": services.Wrap(services.ErrExternalTool, "", "tidy", "exit status 2", nil),
		},
	}
	collabs := collaboratorsWith(t, runner)

	outcome := collabs.PostProcessor.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeFatal {
		t.Fatalf("kind = %v", outcome.Kind)
	}
}

func TestPostProcessorSkipsCompiledDocumentVector(t *testing.T) {
	req := newRequest(t)
	testsupport.WriteFile(t, filepath.Join(req.OutputDir, "doc.html"), "<html><body>x</body></html>")
	// doc.pdf is the compiled document; graph.pdf is a figure.
	testsupport.WriteFile(t, filepath.Join(req.WorkDir, "doc.pdf"), "%PDF-1.5")
	testsupport.WriteFile(t, filepath.Join(req.WorkDir, "graph.pdf"), "%PDF-1.5")
	runner := &testsupport.StubRunner{
		OnRun: func(dir, binary string, args []string) {
			if binary != "dvisvgm" {
				return
			}
			for _, arg := range args {
				if target, ok := strings.CutPrefix(arg, "--output="); ok {
					testsupport.WriteFile(t, target, "<svg/>")
				}
			}
		},
	}
	collabs := collaboratorsWith(t, runner)

	outcome := collabs.PostProcessor.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeOK {
		t.Fatalf("kind = %v, err = %v", outcome.Kind, outcome.Err)
	}
	assets, _ := outcome.Metadata["assets"].([]string)
	if len(assets) != 1 || filepath.Base(assets[0]) != "graph.svg" {
		t.Fatalf("assets = %v", assets)
	}
}

func TestValidatorScoresCompleteDocument(t *testing.T) {
	req := newRequest(t)
	content := "<html><head><title>Doc</title></head><body><math></math>" +
		string(make([]byte, 1100)) + "</body></html>"
	testsupport.WriteFile(t, filepath.Join(req.OutputDir, "doc.html"), content)
	collabs := collaboratorsWith(t, &testsupport.StubRunner{})

	outcome := collabs.Validator.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeOK {
		t.Fatalf("kind = %v, err = %v", outcome.Kind, outcome.Err)
	}
	score, _ := outcome.Metadata["quality_score"].(float64)
	if score != 100 {
		t.Fatalf("score = %.0f, want 100", score)
	}
}

func TestValidatorPenalizesSparseOutput(t *testing.T) {
	req := newRequest(t)
	testsupport.WriteFile(t, filepath.Join(req.OutputDir, "doc.html"), "plain text")
	collabs := collaboratorsWith(t, &testsupport.StubRunner{})

	outcome := collabs.Validator.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeOK {
		t.Fatalf("kind = %v", outcome.Kind)
	}
	score, _ := outcome.Metadata["quality_score"].(float64)
	if score != 60 {
		t.Fatalf("score = %.0f, want 60", score)
	}
	warnings, _ := outcome.Metadata[jobs.MetaWarnings].([]string)
	if len(warnings) == 0 {
		t.Fatal("expected structural warnings")
	}
}

func TestValidatorMissingOutputIsFatal(t *testing.T) {
	req := newRequest(t)
	collabs := collaboratorsWith(t, &testsupport.StubRunner{})

	outcome := collabs.Validator.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeFatal {
		t.Fatalf("kind = %v", outcome.Kind)
	}
	if !errors.Is(outcome.Err, services.ErrValidation) {
		t.Fatalf("err = %v", outcome.Err)
	}
}

func TestValidatorEmptyOutputIsFatal(t *testing.T) {
	req := newRequest(t)
	testsupport.WriteFile(t, filepath.Join(req.OutputDir, "doc.html"), "")
	collabs := collaboratorsWith(t, &testsupport.StubRunner{})

	outcome := collabs.Validator.Run(context.Background(), req)
	if outcome.Kind != pipeline.OutcomeFatal {
		t.Fatalf("kind = %v", outcome.Kind)
	}
}
