package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// Orchestrator contains job admission and background maintenance tunables.
type Orchestrator struct {
	MaxConcurrentJobs int `toml:"max_concurrent_jobs"`
	JobTimeout        int `toml:"job_timeout"`
	MaxJobDuration    int `toml:"max_job_duration"`
	MonitorInterval   int `toml:"monitor_interval"`
	CleanupInterval   int `toml:"cleanup_interval"`
	RetentionHours    int `toml:"retention_hours"`
	MaxRetries        int `toml:"max_retries"`
}

// Tool configures one external conversion binary.
type Tool struct {
	Command string `toml:"command"`
	Timeout int    `toml:"timeout"`
}

// Tools contains the external toolchain the pipeline stages shell out to.
type Tools struct {
	Compiler        Tool `toml:"compiler"`
	MarkupConverter Tool `toml:"markup_converter"`
	HTMLCleaner     Tool `toml:"html_cleaner"`
	VectorConverter Tool `toml:"vector_converter"`
}

// History configures the terminal-job archive database.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Platen.
//
// Configuration sections by subsystem:
//   - Paths: work/output/log directories and API bind address
//   - Orchestrator: concurrency ceiling, timeouts, maintenance intervals
//   - Tools: external conversion binaries and per-tool timeouts
//   - History: terminal-job archive database
//   - Logging: log format and level
type Config struct {
	Paths        Paths        `toml:"paths"`
	Orchestrator Orchestrator `toml:"orchestrator"`
	Tools        Tools        `toml:"tools"`
	History      History      `toml:"history"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/platen/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. When no file exists the
// defaults are returned with exists=false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(defaultPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaultPath, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	return defaultPath, true, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories daemon operation requires.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobTimeoutDuration returns the per-job wall clock budget used by the
// progress heuristic and collaborator timeouts.
func (c *Config) JobTimeoutDuration() time.Duration {
	return time.Duration(c.Orchestrator.JobTimeout) * time.Second
}

// MaxJobDurationDuration returns the stuck-job ceiling the monitor enforces.
func (c *Config) MaxJobDurationDuration() time.Duration {
	return time.Duration(c.Orchestrator.MaxJobDuration) * time.Second
}

// ToolTimeout returns the timeout for one tool, falling back to the job
// timeout when unset.
func (c *Config) ToolTimeout(tool Tool) time.Duration {
	if tool.Timeout > 0 {
		return time.Duration(tool.Timeout) * time.Second
	}
	return c.JobTimeoutDuration()
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
