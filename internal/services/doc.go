// Package services defines shared utilities consumed by the payload lifecycle
// components and the host bridges.
//
// Key responsibilities:
//   - Context helpers that stamp generation event IDs and lifecycle stage names
//     for logging.
//   - Structured error markers plus the Wrap helper so batch passes can report
//     per-file failures (malformed, conflict, io) without aborting.
//
// Use these helpers when wiring new lifecycle logic so error reporting and
// observability stay uniform across save and reconciliation.
package services
