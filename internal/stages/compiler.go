package stages

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"platen/internal/config"
	"platen/internal/fileutil"
	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/pipeline"
	"platen/internal/services"
)

// Compiler runs the deterministic LaTeX to PDF compile. Its failures are
// recoverable: markup conversion can proceed from the raw source, so a broken
// compile degrades the job instead of aborting it.
type Compiler struct {
	tool   config.Tool
	runner services.CommandRunner
	logger *slog.Logger
}

func (c *Compiler) Name() string { return "compile" }

func (c *Compiler) Run(ctx context.Context, req pipeline.Request) pipeline.Outcome {
	args := []string{
		"-pdf",
		"-interaction=nonstopmode",
		"-halt-on-error",
		"-output-directory=" + req.WorkDir,
		req.InputPath,
	}

	result, err := services.RunWithTimeout(ctx, c.runner, req.Timeout, req.WorkDir, c.tool.Command, args...)
	meta := jobs.Metadata{
		"tool":             c.tool.Command,
		"duration_seconds": result.Duration.Seconds(),
	}
	if warnings := compileWarnings(result.Stdout + "\n" + result.Stderr); len(warnings) > 0 {
		meta[jobs.MetaWarnings] = warnings
	}
	if err != nil {
		return pipeline.Recoverable(
			services.Wrap(services.ErrExternalTool, c.Name(), "compile source", "primary compilation failed", err),
			meta,
		)
	}

	pdfPath := c.pdfPath(req)
	if !fileutil.IsRegularFile(pdfPath) {
		return pipeline.Recoverable(
			services.Wrap(services.ErrExternalTool, c.Name(), "compile source", "compiler produced no PDF", nil),
			meta,
		)
	}
	meta["pdf_file"] = pdfPath
	meta["pdf_size_bytes"] = fileutil.FileSize(pdfPath)
	c.logger.Debug("compiled PDF artifact",
		logging.String(logging.FieldJobID, req.JobID),
		logging.String("pdf", pdfPath),
	)
	return pipeline.OK(meta)
}

func (c *Compiler) pdfPath(req pipeline.Request) string {
	stem := strings.TrimSuffix(filepath.Base(req.InputPath), filepath.Ext(req.InputPath))
	return filepath.Join(req.WorkDir, stem+".pdf")
}

func compileWarnings(output string) []string {
	return collectLines(output, func(line string) bool {
		lower := strings.ToLower(line)
		return strings.Contains(lower, "warning") && !strings.Contains(lower, "rerun")
	})
}
