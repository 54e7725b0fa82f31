package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadReturnsDefaultsWhenFileMissing(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("missing file reported as existing")
	}
	if path == "" {
		t.Fatal("resolved path should not be empty")
	}
	if cfg.Orchestrator.MaxConcurrentJobs != defaultMaxConcurrentJobs {
		t.Fatalf("MaxConcurrentJobs = %d", cfg.Orchestrator.MaxConcurrentJobs)
	}
	if cfg.Tools.Compiler.Command != defaultCompilerCommand {
		t.Fatalf("Compiler.Command = %q", cfg.Tools.Compiler.Command)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
work_dir = "` + filepath.Join(dir, "work") + `"
output_dir = "` + filepath.Join(dir, "out") + `"

[orchestrator]
max_concurrent_jobs = 2
job_timeout = 60

[tools.markup_converter]
command = "  pandoc  "
timeout = 30

[logging]
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("exists=%v resolved=%q", exists, resolved)
	}
	if cfg.Orchestrator.MaxConcurrentJobs != 2 {
		t.Fatalf("MaxConcurrentJobs = %d", cfg.Orchestrator.MaxConcurrentJobs)
	}
	if cfg.Tools.MarkupConverter.Command != "pandoc" {
		t.Fatalf("command not trimmed: %q", cfg.Tools.MarkupConverter.Command)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level not lowered: %q", cfg.Logging.Level)
	}
	// Unset sections fall back to defaults.
	if cfg.Orchestrator.MaxJobDuration != defaultMaxJobDuration {
		t.Fatalf("MaxJobDuration = %d", cfg.Orchestrator.MaxJobDuration)
	}
	if cfg.JobTimeoutDuration() != 60*time.Second {
		t.Fatalf("JobTimeoutDuration = %s", cfg.JobTimeoutDuration())
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{
			name: "same work and output dir",
			content: `
[paths]
work_dir = "/tmp/same"
output_dir = "/tmp/same"
`,
		},
		{
			name: "bad log format",
			content: `
[logging]
format = "xml"
`,
		},
		{
			name: "monitor longer than max duration",
			content: `
[orchestrator]
max_job_duration = 10
monitor_interval = 60
`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestToolTimeoutFallsBackToJobTimeout(t *testing.T) {
	cfg := Default()
	cfg.Orchestrator.JobTimeout = 42
	if got := cfg.ToolTimeout(Tool{Command: "x"}); got != 42*time.Second {
		t.Fatalf("ToolTimeout = %s", got)
	}
	if got := cfg.ToolTimeout(Tool{Command: "x", Timeout: 7}); got != 7*time.Second {
		t.Fatalf("ToolTimeout = %s", got)
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	expanded, err := ExpandPath("~/platen-test")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if !strings.HasPrefix(expanded, home) {
		t.Fatalf("expanded = %q, want prefix %q", expanded, home)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := WriteSample(path); err == nil {
		t.Fatal("expected refusal to overwrite")
	}

	// The embedded sample must itself be loadable.
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %s missing: %v", dir, err)
		}
	}
}
