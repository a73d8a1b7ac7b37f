// Package metrics exposes Prometheus metrics for inference runs and the
// browse API.
//
// Each Metrics value owns an isolated registry, so tests and embedded
// servers never collide with the global default registry. Metrics also
// implements progress.Reporter, publishing progress as a per-key gauge.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/vibecheck/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vibecheck"

// Config controls the metrics registry and its HTTP endpoint.
type Config struct {
	// Address is the listen address of the standalone /metrics server.
	Address string

	// ServiceName is attached to every metric as the "service" label.
	ServiceName string

	// EnableDefaultCollectors registers Go runtime and process collectors.
	EnableDefaultCollectors bool
}

// Metrics holds the collectors recorded by the inference pipeline.
type Metrics struct {
	// Registry is the Prometheus registry where all metrics are registered.
	Registry *prometheus.Registry

	conceptsTotal    *prometheus.CounterVec
	underfilledTotal prometheus.Counter
	selectedPassages prometheus.Histogram
	conceptDuration  *prometheus.HistogramVec
	progressPercent  *prometheus.GaugeVec
	address          string
	logger           *slog.Logger
}

// NewMetrics creates a registry and registers the vibecheck collectors.
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	var registerer prometheus.Registerer = registry
	if cfg.ServiceName != "" {
		registerer = prometheus.WrapRegistererWith(
			prometheus.Labels{"service": cfg.ServiceName},
			registry,
		)
	}

	m := &Metrics{
		Registry: registry,
		address:  cfg.Address,
		logger:   slog.Default().With("component", "metrics"),
	}

	m.conceptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concepts_total",
			Help:      "Concept work units finished, by status.",
		},
		[]string{"status"},
	)
	m.underfilledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_underfilled_total",
			Help:      "Selections that could not reach the minimum passage count.",
		},
	)
	m.selectedPassages = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "selected_passages",
			Help:      "Number of passages selected for classification per concept.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		},
	)
	m.conceptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "concept_duration_seconds",
			Help:      "Wall time of a concept work unit in seconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
		},
		[]string{"status"},
	)
	m.progressPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "progress_percent",
			Help:      "Progress of a tracked unit of work, 0 to 100.",
		},
		[]string{"key"},
	)

	registerer.MustRegister(
		m.conceptsTotal,
		m.underfilledTotal,
		m.selectedPassages,
		m.conceptDuration,
		m.progressPercent,
	)

	if cfg.EnableDefaultCollectors {
		registerer.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	return m
}

// ObserveConcept records a finished work unit.
func (m *Metrics) ObserveConcept(status core.Status, duration time.Duration) {
	m.conceptsTotal.WithLabelValues(string(status)).Inc()
	m.conceptDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
}

// ObserveSelection records the size of a selection.
func (m *Metrics) ObserveSelection(selected int, underfilled bool) {
	m.selectedPassages.Observe(float64(selected))
	if underfilled {
		m.underfilledTotal.Inc()
	}
}

// Report sets the progress gauge for key.
func (m *Metrics) Report(_ context.Context, key string, fraction float64, _ string) error {
	m.progressPercent.WithLabelValues(key).Set(fraction * 100)
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve runs a standalone /metrics server until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              m.address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		m.logger.Info("serving metrics", "address", m.address)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
