package main

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stageLabel renders a stage identifier like "compiling_primary" as
// "Compiling Primary" for human output.
func stageLabel(stage string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(stage), "_", " ")
	if cleaned == "" {
		return "-"
	}
	return cases.Title(language.Und).String(cleaned)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func formatTimestamp(value string) string {
	if value == "" {
		return "-"
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts.Local().Format("2006-01-02 15:04:05")
	}
	return value
}

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
