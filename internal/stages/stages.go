package stages

import (
	"log/slog"
	"path/filepath"
	"strings"

	"platen/internal/config"
	"platen/internal/logging"
	"platen/internal/pipeline"
	"platen/internal/services"
)

// NewCollaborators wires the four stage adapters against the configured
// toolchain and a shared command runner.
func NewCollaborators(cfg *config.Config, runner services.CommandRunner, logger *slog.Logger) pipeline.Collaborators {
	if runner == nil {
		runner = services.NewCommandRunner()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return pipeline.Collaborators{
		Compiler:        &Compiler{tool: cfg.Tools.Compiler, runner: runner, logger: logging.NewComponentLogger(logger, "compile")},
		MarkupConverter: &MarkupConverter{tool: cfg.Tools.MarkupConverter, runner: runner, logger: logging.NewComponentLogger(logger, "markup")},
		PostProcessor: &PostProcessor{
			cleaner:   cfg.Tools.HTMLCleaner,
			vectorier: cfg.Tools.VectorConverter,
			runner:    runner,
			logger:    logging.NewComponentLogger(logger, "postprocess"),
		},
		Validator: &Validator{logger: logging.NewComponentLogger(logger, "validate")},
	}
}

// outputHTMLPath derives the main HTML artifact location for a request: the
// source file's stem under the job output directory.
func outputHTMLPath(req pipeline.Request) string {
	stem := strings.TrimSuffix(filepath.Base(req.InputPath), filepath.Ext(req.InputPath))
	return filepath.Join(req.OutputDir, stem+".html")
}

func collectLines(raw string, match func(string) bool) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if match(line) {
			out = append(out, line)
		}
	}
	return out
}
