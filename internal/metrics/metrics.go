// Package metrics exposes pipeline counters on a private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector the service records.
type Metrics struct {
	reg *prometheus.Registry

	// BatchesTotal counts whole-batch outcomes: ok, rejected, failed.
	BatchesTotal *prometheus.CounterVec
	// SinglesTotal counts single-record generations by delivery mode
	// (attachment, link) and outcome (ok, invalid, failed).
	SinglesTotal *prometheus.CounterVec

	RowsRendered prometheus.Counter
	RowsSkipped  prometheus.Counter
	RowsFailed   prometheus.Counter
}

// New registers all collectors on a fresh registry so tests can hold
// independent instances.
func New() *Metrics {
	m := &Metrics{reg: prometheus.NewRegistry()}
	m.BatchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invitegen",
		Name:      "batches_total",
		Help:      "Spreadsheet batches processed, by outcome.",
	}, []string{"outcome"})
	m.SinglesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "invitegen",
		Name:      "singles_total",
		Help:      "Single-record generations, by delivery mode and outcome.",
	}, []string{"mode", "outcome"})
	m.RowsRendered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "invitegen",
		Name:      "rows_rendered_total",
		Help:      "Rows rendered into archive entries.",
	})
	m.RowsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "invitegen",
		Name:      "rows_skipped_total",
		Help:      "Rows silently skipped for missing required fields.",
	})
	m.RowsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "invitegen",
		Name:      "rows_failed_total",
		Help:      "Rows that failed rendering.",
	})
	m.reg.MustRegister(m.BatchesTotal, m.SinglesTotal, m.RowsRendered, m.RowsSkipped, m.RowsFailed)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
