package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"payloadkeeper/internal/services"
)

const namespace = "payloadkeeper"

// Reconcile operation labels.
const (
	OpMoved    = "moved"
	OpRenamed  = "renamed"
	OpSkipped  = "skipped"
	OpConflict = "conflict"
	OpError    = "error"
	OpDeleted  = "deleted"
)

// Metrics owns a private registry so tests and multiple recorders never collide
// on the global default registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	saves      *prometheus.CounterVec
	skips      prometheus.Counter
	failures   *prometheus.CounterVec
	reconcile  *prometheus.CounterVec
	lastSaveTS prometheus.Gauge
}

// New builds the collector set and registers it.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Payloads written to the tree, by destination.",
		}, []string{"destination"}),
		skips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_skips_total",
			Help:      "Generation events suppressed by the dedup window.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "save_failures_total",
			Help:      "Generation events whose payload could not be persisted.",
		}, []string{"outcome"}),
		reconcile: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_operations_total",
			Help:      "File operations performed by startup reconciliation.",
		}, []string{"op"}),
		lastSaveTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_save_timestamp_seconds",
			Help:      "Unix time of the most recent successful save.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.saves,
		m.skips,
		m.failures,
		m.reconcile,
		m.lastSaveTS,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSave counts one successful save.
func (m *Metrics) ObserveSave(draft bool, at time.Time) {
	if m == nil {
		return
	}
	destination := "payloads"
	if draft {
		destination = "drafts"
	}
	m.saves.WithLabelValues(destination).Inc()
	m.lastSaveTS.Set(float64(at.Unix()))
}

// ObserveSkip counts one suppressed duplicate.
func (m *Metrics) ObserveSkip() {
	if m == nil {
		return
	}
	m.skips.Inc()
}

// ObserveFailure counts one persistence failure, labelled by services.Outcome.
func (m *Metrics) ObserveFailure(err error) {
	if m == nil || err == nil {
		return
	}
	m.failures.WithLabelValues(services.Outcome(err)).Inc()
}

// ObserveReconcile adds n operations of kind op.
func (m *Metrics) ObserveReconcile(op string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reconcile.WithLabelValues(op).Add(float64(n))
}
