// Package metrics exposes Prometheus counters for saves, duplicate skips,
// persistence failures and reconciliation operations.
package metrics
