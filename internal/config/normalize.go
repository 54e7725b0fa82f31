package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOrchestrator()
	c.normalizeTools()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeOrchestrator() {
	if c.Orchestrator.MaxConcurrentJobs <= 0 {
		c.Orchestrator.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
	if c.Orchestrator.JobTimeout <= 0 {
		c.Orchestrator.JobTimeout = defaultJobTimeout
	}
	if c.Orchestrator.MaxJobDuration <= 0 {
		c.Orchestrator.MaxJobDuration = defaultMaxJobDuration
	}
	if c.Orchestrator.MonitorInterval <= 0 {
		c.Orchestrator.MonitorInterval = defaultMonitorInterval
	}
	if c.Orchestrator.CleanupInterval <= 0 {
		c.Orchestrator.CleanupInterval = defaultCleanupInterval
	}
	if c.Orchestrator.RetentionHours <= 0 {
		c.Orchestrator.RetentionHours = defaultRetentionHours
	}
	if c.Orchestrator.MaxRetries < 0 {
		c.Orchestrator.MaxRetries = defaultMaxRetries
	}
}

func (c *Config) normalizeTools() {
	normalizeTool(&c.Tools.Compiler, defaultCompilerCommand, defaultCompilerTimeout)
	normalizeTool(&c.Tools.MarkupConverter, defaultMarkupConverterCommand, defaultMarkupConverterTimeout)
	normalizeTool(&c.Tools.HTMLCleaner, defaultHTMLCleanerCommand, defaultHTMLCleanerTimeout)
	normalizeTool(&c.Tools.VectorConverter, defaultVectorConverterCommand, defaultVectorConverterTimeout)
}

func normalizeTool(tool *Tool, command string, timeout int) {
	tool.Command = strings.TrimSpace(tool.Command)
	if tool.Command == "" {
		tool.Command = command
	}
	if tool.Timeout <= 0 {
		tool.Timeout = timeout
	}
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	var err error
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
