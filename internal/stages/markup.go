package stages

import (
	"context"
	"log/slog"
	"strings"

	"platen/internal/config"
	"platen/internal/fileutil"
	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/pipeline"
	"platen/internal/services"
)

// MarkupConverter turns the TeX source into standalone HTML with MathML.
// Any failure here is fatal: without converted markup there is nothing for
// the rest of the pipeline to work on.
type MarkupConverter struct {
	tool   config.Tool
	runner services.CommandRunner
	logger *slog.Logger
}

func (m *MarkupConverter) Name() string { return "markup" }

func (m *MarkupConverter) Run(ctx context.Context, req pipeline.Request) pipeline.Outcome {
	outPath := outputHTMLPath(req)
	args := []string{
		"--from=latex",
		"--to=html5",
		"--mathml",
		"--standalone",
		"--extract-media=" + req.WorkDir,
		"--output=" + outPath,
		req.InputPath,
	}
	if title, ok := req.Options["title"].(string); ok && strings.TrimSpace(title) != "" {
		args = append(args, "--metadata=title:"+strings.TrimSpace(title))
	}

	result, err := services.RunWithTimeout(ctx, m.runner, req.Timeout, req.WorkDir, m.tool.Command, args...)
	meta := jobs.Metadata{
		"tool":             m.tool.Command,
		"duration_seconds": result.Duration.Seconds(),
	}
	if warnings := markupWarnings(result.Stderr); len(warnings) > 0 {
		meta[jobs.MetaWarnings] = warnings
	}
	if err != nil {
		return pipeline.Fatal(
			services.Wrap(services.ErrExternalTool, m.Name(), "convert markup", "markup conversion failed", err),
			meta,
		)
	}
	if !fileutil.IsRegularFile(outPath) {
		return pipeline.Fatal(
			services.Wrap(services.ErrExternalTool, m.Name(), "convert markup", "converter produced no output", nil),
			meta,
		)
	}

	meta["output_files"] = []string{outPath}
	m.logger.Debug("converted markup",
		logging.String(logging.FieldJobID, req.JobID),
		logging.String("output", outPath),
	)
	return pipeline.OK(meta)
}

func markupWarnings(stderr string) []string {
	return collectLines(stderr, func(line string) bool {
		return strings.Contains(strings.ToLower(line), "warning")
	})
}
