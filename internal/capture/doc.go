// Package capture is the single entry point for the host's generation hook.
//
// Recorder.HandleGeneration takes one payload plus the host's metadata flags,
// consults the dedup guard, and saves through the layout store. Persistence
// failures are logged and counted but never returned, so a broken disk can not
// keep a generation result from being displayed.
package capture
