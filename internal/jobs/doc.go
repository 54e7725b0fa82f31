// Package jobs defines the shared data model for conversion work.
//
// A Job captures one conversion request and its mutable state: lifecycle
// status, the current pipeline stage, one StageRecord per pipeline stage,
// result artifacts, and a free-form metadata side-channel for collaborator
// diagnostics. The orchestrator owns the canonical job map; the pipeline
// executor mutates a job only while its worker runs it.
//
// Status and stage enums are string-typed so they serialize cleanly into the
// history database and API responses. Add new stages by extending the Stage
// constants and the fixed stage plan in the pipeline package.
package jobs
