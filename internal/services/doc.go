// Package services defines shared utilities consumed by the pipeline stages
// and the orchestrator.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that tag failures with a
//     category (resource limit, duplicate, not found, external tool, timeout,
//     validation, internal) for later classification.
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - A thin command runner that makes external tool execution testable.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, timeouts) stays uniform across the pipeline.
package services
