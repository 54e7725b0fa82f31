package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateOrchestrator(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.WorkDir == c.Paths.OutputDir {
		return errors.New("paths.work_dir and paths.output_dir must differ")
	}
	return nil
}

func (c *Config) validateOrchestrator() error {
	if c.Orchestrator.MaxConcurrentJobs < 1 {
		return errors.New("orchestrator.max_concurrent_jobs must be at least 1")
	}
	if c.Orchestrator.MaxJobDuration < c.Orchestrator.MonitorInterval {
		return errors.New("orchestrator.max_job_duration must not be shorter than orchestrator.monitor_interval")
	}
	return nil
}

func (c *Config) validateTools() error {
	for _, entry := range []struct {
		name string
		tool Tool
	}{
		{"tools.compiler", c.Tools.Compiler},
		{"tools.markup_converter", c.Tools.MarkupConverter},
		{"tools.html_cleaner", c.Tools.HTMLCleaner},
		{"tools.vector_converter", c.Tools.VectorConverter},
	} {
		if entry.tool.Command == "" {
			return fmt.Errorf("%s.command must be set", entry.name)
		}
		if entry.tool.Timeout < 1 {
			return fmt.Errorf("%s.timeout must be at least 1 second", entry.name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
