// Package logging centralizes slog construction and the structured field
// conventions used across the daemon.
//
// Loggers are built from config (level, format, optional log file) and write
// through either a JSON handler or a compact console handler. Standardized
// field keys (component, job_id, stage, event_type, error_hint) keep log
// queries stable; context helpers stamp job and stage identity so every line
// emitted inside a stage carries the same correlation fields.
package logging
