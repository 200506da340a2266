// Package reconcile runs the one-time startup pass over the payload tree:
// reorganize every root file under the current rules, then optionally delete
// older payloads that repeat the same prompt pair.
package reconcile
