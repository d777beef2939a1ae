// Package metrics exposes scan and inventory counters in the Prometheus
// exposition format.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scan outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Recorder collects shelfscan metrics on a private registry. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	scans         *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	detections    *prometheus.CounterVec
	inventoryOps  *prometheus.CounterVec
	operations    *prometheus.HistogramVec
	hookRuns      *prometheus.CounterVec
}

// New builds a recorder with Go runtime and process collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelfscan",
			Name:      "scans_total",
			Help:      "Scan sessions by outcome.",
		}, []string{"outcome"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shelfscan",
			Name:      "scan_duration_seconds",
			Help:      "Time from opening the camera to the accepted barcode.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelfscan",
			Name:      "detections_total",
			Help:      "Accepted detections by barcode format.",
		}, []string{"format"}),
		inventoryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelfscan",
			Name:      "inventory_mutations_total",
			Help:      "Committed inventory mutations by operation.",
		}, []string{"op"}),
		operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shelfscan",
			Name:      "operation_duration_seconds",
			Help:      "Duration of storage and document operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		hookRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shelfscan",
			Name:      "hook_runs_total",
			Help:      "Hook executions by hook and result.",
		}, []string{"hook", "status"}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.scans, r.scanDuration, r.detections,
		r.inventoryOps, r.operations, r.hookRuns,
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// ScanFinished records one scan session.
func (r *Recorder) ScanFinished(outcome, format string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.scans.WithLabelValues(outcome).Inc()
	if outcome == OutcomeAccepted {
		r.scanDuration.Observe(elapsed.Seconds())
		if format == "" {
			format = "unknown"
		}
		r.detections.WithLabelValues(format).Inc()
	}
}

// InventoryChanged records a committed mutation.
func (r *Recorder) InventoryChanged(op string) {
	if r == nil {
		return
	}
	r.inventoryOps.WithLabelValues(op).Inc()
}

// TrackInventorySize exports size as the stocked item gauge, sampled at
// scrape time. It may be called once per recorder.
func (r *Recorder) TrackInventorySize(size func() int) error {
	if r == nil || size == nil {
		return nil
	}
	return r.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "shelfscan",
		Name:      "inventory_items",
		Help:      "Number of stocked items.",
	}, func() float64 { return float64(size()) }))
}

// Observe records an operation outcome and its duration.
func (r *Recorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if r == nil || operation == "" {
		return
	}
	r.operations.WithLabelValues(operation, status(success)).Observe(duration.Seconds())
}

// HookRan records one hook execution.
func (r *Recorder) HookRan(name string, success bool) {
	if r == nil {
		return
	}
	r.hookRuns.WithLabelValues(name, status(success)).Inc()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
