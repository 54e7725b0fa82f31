package stages

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"platen/internal/fileutil"
	"platen/internal/jobs"
	"platen/internal/logging"
	"platen/internal/pipeline"
	"platen/internal/services"
)

// Validator performs the final output checks and derives the quality score.
// It needs no external tool; a missing or empty artifact is fatal.
type Validator struct {
	logger *slog.Logger
}

func (v *Validator) Name() string { return "validate" }

func (v *Validator) Run(_ context.Context, req pipeline.Request) pipeline.Outcome {
	htmlPath := outputHTMLPath(req)
	if !fileutil.IsRegularFile(htmlPath) {
		return pipeline.Fatal(
			services.Wrap(services.ErrValidation, v.Name(), "check output",
				fmt.Sprintf("output artifact %q missing", htmlPath), nil),
			nil,
		)
	}
	size := fileutil.FileSize(htmlPath)
	if size == 0 {
		return pipeline.Fatal(
			services.Wrap(services.ErrValidation, v.Name(), "check output",
				fmt.Sprintf("output artifact %q is empty", htmlPath), nil),
			nil,
		)
	}

	score, warnings := v.score(htmlPath, size)
	meta := jobs.Metadata{
		"quality_score":     score,
		"output_size_bytes": size,
	}
	if len(warnings) > 0 {
		meta[jobs.MetaWarnings] = warnings
	}
	v.logger.Debug("output validated",
		logging.String(logging.FieldJobID, req.JobID),
		logging.Float64("quality_score", score),
	)
	return pipeline.OK(meta)
}

// score grades the artifact on cheap structural signals. The figure is a
// relative indicator for operators, not a rendering-fidelity measurement.
func (v *Validator) score(htmlPath string, size int64) (float64, []string) {
	score := 60.0
	var warnings []string

	if size >= 1024 {
		score += 10
	} else {
		warnings = append(warnings, "output is suspiciously small")
	}

	content, err := os.ReadFile(htmlPath)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("output not readable for scoring: %v", err))
		return score, warnings
	}
	html := strings.ToLower(string(content))

	if strings.Contains(html, "<html") && strings.Contains(html, "</html>") {
		score += 10
	} else {
		warnings = append(warnings, "output lacks a complete html element")
	}
	if strings.Contains(html, "<title") {
		score += 5
	}
	if strings.Contains(html, "<body") {
		score += 10
	} else {
		warnings = append(warnings, "output lacks a body element")
	}
	if strings.Contains(html, "<math") {
		score += 5
	}

	if score > 100 {
		score = 100
	}
	return score, warnings
}
