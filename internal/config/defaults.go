package config

const (
	defaultWorkDir   = "~/.local/share/platen/work"
	defaultOutputDir = "~/.local/share/platen/output"
	defaultLogDir    = "~/.local/share/platen/logs"
	defaultAPIBind   = "127.0.0.1:7642"

	defaultMaxConcurrentJobs = 5
	defaultJobTimeout        = 300
	defaultMaxJobDuration    = 600
	defaultMonitorInterval   = 30
	defaultCleanupInterval   = 3600
	defaultRetentionHours    = 24
	defaultMaxRetries        = 3

	defaultCompilerCommand        = "latexmk"
	defaultCompilerTimeout        = 120
	defaultMarkupConverterCommand = "pandoc"
	defaultMarkupConverterTimeout = 180
	defaultHTMLCleanerCommand     = "tidy"
	defaultHTMLCleanerTimeout     = 60
	defaultVectorConverterCommand = "dvisvgm"
	defaultVectorConverterTimeout = 60

	defaultHistoryPath = "~/.local/share/platen/history.db"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Orchestrator: Orchestrator{
			MaxConcurrentJobs: defaultMaxConcurrentJobs,
			JobTimeout:        defaultJobTimeout,
			MaxJobDuration:    defaultMaxJobDuration,
			MonitorInterval:   defaultMonitorInterval,
			CleanupInterval:   defaultCleanupInterval,
			RetentionHours:    defaultRetentionHours,
			MaxRetries:        defaultMaxRetries,
		},
		Tools: Tools{
			Compiler:        Tool{Command: defaultCompilerCommand, Timeout: defaultCompilerTimeout},
			MarkupConverter: Tool{Command: defaultMarkupConverterCommand, Timeout: defaultMarkupConverterTimeout},
			HTMLCleaner:     Tool{Command: defaultHTMLCleanerCommand, Timeout: defaultHTMLCleanerTimeout},
			VectorConverter: Tool{Command: defaultVectorConverterCommand, Timeout: defaultVectorConverterTimeout},
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
