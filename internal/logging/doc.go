// Package logging assembles structured slog loggers and formatting helpers used
// across payloadkeeper.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so lifecycle code can tag log lines with the
// generation event ID and the stage (save, reorganize, dedupe) automatically.
// The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
