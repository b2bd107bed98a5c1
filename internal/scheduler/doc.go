// Package scheduler decides when the daemon runs a pass.
//
// A Scheduler runs an optional startup pass, then sleeps until the next slot:
// a fixed interval when one is configured, otherwise a daily wall-clock time
// in the configured timezone. A pass that fails before reaching any group gets
// a single quick retry. External triggers from the API or the CLI wake the
// loop immediately. Passes started through the Scheduler never overlap, and
// the pipeline's file lock keeps them apart from passes run by other
// processes.
package scheduler
