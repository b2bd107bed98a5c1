// Package services defines shared utilities consumed by the pipeline
// components and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp head row positions, stage names, pass IDs and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that let the pass loop
//     translate failures into group outcomes (validation vs connectivity).
//
// Use these helpers when wiring new integrations so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
