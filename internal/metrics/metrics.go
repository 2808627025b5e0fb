// Package metrics exposes Prometheus collectors for the POI repository and
// export engine.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Netonia/POIMapper/internal/repository"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	POIs    prometheus.Gauge
	Changes *prometheus.CounterVec
	Exports *prometheus.CounterVec
}

// New creates and registers the collectors, including Go runtime metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		POIs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "poimapper",
			Name:      "pois",
			Help:      "Number of POIs in the repository.",
		}),
		Changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poimapper",
			Name:      "repository_changes_total",
			Help:      "Persisted repository changes by kind.",
		}, []string{"kind"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poimapper",
			Name:      "exports_total",
			Help:      "Exports by format and outcome.",
		}, []string{"format", "outcome"}),
	}
	m.registry.MustRegister(
		m.POIs,
		m.Changes,
		m.Exports,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe is a repository.Listener that tracks collection size and changes.
func (m *Metrics) Observe(_ context.Context, ev repository.Event) error {
	m.POIs.Set(float64(ev.Count))
	m.Changes.WithLabelValues(string(ev.Kind)).Inc()
	return nil
}

// RecordExport counts one export attempt.
func (m *Metrics) RecordExport(format string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Exports.WithLabelValues(format, outcome).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
