// Package main hosts the payloadkeeper CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the internal packages:
// one-off saves and reconciliation passes against the payload tree, listings,
// and the long-running serve command that hosts the HTTP and inbox bridges.
// Configuration resolution and logger setup live in the shared command
// context so subcommands only deal with their own flags and output.
package main
