package ingest

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "mediaflow"

// Metrics aggregates the stage timings and item outcomes of a run in to
// prometheus collectors. The registry is private to the run so that the
// collected values can be written to a node-exporter textfile once the
// batch completes, as a batch job has no endpoint to be scraped.
type Metrics struct {
	mu       sync.Mutex
	registry *prometheus.Registry
	stages   *prometheus.HistogramVec
	items    *prometheus.CounterVec
	failures *prometheus.CounterVec
	lastRun  prometheus.Gauge
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each executed pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"stage"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "items_total",
			Help:      "Number of items processed, by outcome.",
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "item_failures_total",
			Help:      "Number of failed items, by the stage they failed in.",
		}, []string{"stage"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which the last batch completed.",
		}),
	}

	metrics.registry.MustRegister(metrics.stages, metrics.items, metrics.failures, metrics.lastRun)
	return metrics
}

// Observe records the outcome and stage timings of a finished item.
func (metrics *Metrics) Observe(result *ItemResult) {
	if metrics == nil {
		return
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()

	if result.Timings != nil {
		for _, stage := range result.Timings.Stages() {
			metrics.stages.WithLabelValues(stage.Stage).Observe(stage.Duration.Seconds())
		}
	}

	if result.Succeeded() {
		metrics.items.WithLabelValues("success").Inc()
	} else {
		metrics.items.WithLabelValues("failure").Inc()
		if result.Error != nil {
			metrics.failures.WithLabelValues(result.Error.Stage.String()).Inc()
		}
	}
}

// Finish marks the run as complete.
func (metrics *Metrics) Finish() {
	if metrics == nil {
		return
	}

	metrics.lastRun.SetToCurrentTime()
}

// Registry is the registry every collector of the run is registered with.
func (metrics *Metrics) Registry() *prometheus.Registry { return metrics.registry }

// WriteTextfile writes every collected metric to the path provided in the
// prometheus text exposition format.
func (metrics *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, metrics.registry)
}
