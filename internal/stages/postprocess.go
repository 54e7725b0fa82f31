package stages

import (
	"context"
	"fmt"
	"io/fs"
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

// Raster formats are copied as-is; vector sources are converted to SVG.
var rasterExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".svg":  {},
}

var vectorExtensions = map[string]struct{}{
	".pdf": {},
	".eps": {},
	".dvi": {},
}

// PostProcessor cleans the generated HTML and materializes image assets into
// the output tree. Failures are fatal: a job must not complete with mangled
// markup or missing assets.
type PostProcessor struct {
	cleaner   config.Tool
	vectorier config.Tool
	runner    services.CommandRunner
	logger    *slog.Logger
}

func (p *PostProcessor) Name() string { return "postprocess" }

func (p *PostProcessor) Run(ctx context.Context, req pipeline.Request) pipeline.Outcome {
	htmlPath := outputHTMLPath(req)
	if !fileutil.IsRegularFile(htmlPath) {
		return pipeline.Fatal(
			services.Wrap(services.ErrValidation, p.Name(), "clean markup",
				fmt.Sprintf("expected HTML artifact %q missing", htmlPath), nil),
			nil,
		)
	}

	meta := jobs.Metadata{"tool": p.cleaner.Command}
	var warnings []string

	result, err := services.RunWithTimeout(ctx, p.runner, req.Timeout, req.OutputDir,
		p.cleaner.Command, "-quiet", "-modify", "-utf8", htmlPath)
	if err != nil {
		// tidy exits 1 when it only emitted warnings; the cleaned file is
		// still written in that case.
		if result.ExitCode != 1 {
			return pipeline.Fatal(
				services.Wrap(services.ErrExternalTool, p.Name(), "clean markup", "HTML cleanup failed", err),
				meta,
			)
		}
		warnings = append(warnings, cleanerWarnings(result.Stderr)...)
	}

	assets, assetWarnings, err := p.materializeAssets(ctx, req)
	if err != nil {
		return pipeline.Fatal(
			services.Wrap(services.ErrExternalTool, p.Name(), "materialize assets", "asset conversion failed", err),
			meta,
		)
	}
	warnings = append(warnings, assetWarnings...)

	if len(warnings) > 0 {
		meta[jobs.MetaWarnings] = warnings
	}
	if len(assets) > 0 {
		meta["assets"] = assets
	}
	p.logger.Debug("post-processing finished",
		logging.String(logging.FieldJobID, req.JobID),
		logging.Int("assets", len(assets)),
	)
	return pipeline.OK(meta)
}

// materializeAssets copies raster images from the work directory into the
// output asset tree and converts vector sources to SVG.
func (p *PostProcessor) materializeAssets(ctx context.Context, req pipeline.Request) ([]string, []string, error) {
	assetDir := filepath.Join(req.OutputDir, "assets")
	var assets []string
	var warnings []string

	walkErr := filepath.WalkDir(req.WorkDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || !entry.Type().IsRegular() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		base := entry.Name()

		if _, ok := rasterExtensions[ext]; ok {
			if err := fileutil.EnsureDir(assetDir); err != nil {
				return err
			}
			target := filepath.Join(assetDir, base)
			if err := fileutil.CopyFile(path, target); err != nil {
				warnings = append(warnings, fmt.Sprintf("asset %s not copied: %v", base, err))
				return nil
			}
			assets = append(assets, target)
			return nil
		}

		if _, ok := vectorExtensions[ext]; ok {
			// Skip the compiled document itself; only figures become assets.
			if strings.TrimSuffix(base, ext) == strings.TrimSuffix(filepath.Base(req.InputPath), filepath.Ext(req.InputPath)) {
				return nil
			}
			if err := fileutil.EnsureDir(assetDir); err != nil {
				return err
			}
			target := filepath.Join(assetDir, strings.TrimSuffix(base, ext)+".svg")
			_, convErr := services.RunWithTimeout(ctx, p.runner, req.Timeout, req.WorkDir,
				p.vectorier.Command, "--output="+target, path)
			if convErr != nil {
				warnings = append(warnings, fmt.Sprintf("vector asset %s not converted: %v", base, convErr))
				return nil
			}
			if fileutil.IsRegularFile(target) {
				assets = append(assets, target)
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, warnings, walkErr
	}
	return assets, warnings, nil
}

func cleanerWarnings(stderr string) []string {
	return collectLines(stderr, func(line string) bool {
		lower := strings.ToLower(line)
		return strings.Contains(lower, "warning") || strings.Contains(lower, "error")
	})
}
