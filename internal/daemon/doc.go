// Package daemon coordinates the long-running racefeed process.
//
// It wires the scheduler, the run journal, metrics and notifications into a
// single lifecycle with flock-based locking to prevent multiple instances, and
// serves the HTTP API used by the CLI and by monitoring: status, history, an
// endpoint that requests an immediate pass, and Prometheus metrics.
//
// Keep orchestration logic here: the pass itself lives in the pipeline package
// and its timing in the scheduler; the daemon focuses on startup, shutdown and
// high level coordination.
package daemon
