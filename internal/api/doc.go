// Package api defines the wire-format types of the daemon's HTTP API and a
// small client for them.
//
// # Key Types
//
// DaemonStatus: daemon and scheduler state with the last pass.
//
// Pass/Group: transport form of a pass summary or a journaled pass.
//
// RunResponse: acknowledgement of a triggered pass.
//
// # Converters
//
// FromPassSummary: pipeline.PassSummary -> Pass.
//
// FromJournalPass: journal.Pass -> Pass.
//
// FromSchedulerStatus: scheduler.Status -> SchedulerStatus.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds and
// are omitted when zero.
package api
