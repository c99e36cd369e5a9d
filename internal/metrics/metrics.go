// Prometheus instrumentation for the pricing engine. Counters and histograms
// here are the operational contract for staleness and degradation detection:
// refresh-job failures never fail the serving path, so they must be visible.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	GridHits    prometheus.Counter
	GridMisses  prometheus.Counter
	Degraded    *prometheus.CounterVec

	InferenceLatency *prometheus.HistogramVec
	JobDuration      *prometheus.HistogramVec
	JobFailures      *prometheus.CounterVec
	JobProcessed     *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glide_cache_hit_total",
			Help: "Entity cache hits by model kind.",
		}, []string{"model"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glide_cache_miss_total",
			Help: "Entity cache misses by model kind and reason.",
		}, []string{"model", "reason"}),
		GridHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glide_grid_hit_total",
			Help: "Surge grid lookups served from the current generation.",
		}),
		GridMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glide_grid_miss_total",
			Help: "Surge grid lookups outside coverage or horizon, served neutral.",
		}),
		Degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glide_degraded_component_total",
			Help: "Price components defaulted to neutral due to failure or timeout.",
		}, []string{"component"}),
		InferenceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glide_inference_latency_seconds",
			Help:    "Latency of live model inference calls.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"model"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glide_job_duration_seconds",
			Help:    "Duration of refresh job runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"job"}),
		JobFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glide_job_failures_total",
			Help: "Per-item failures inside refresh job runs.",
		}, []string{"job"}),
		JobProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glide_job_processed_total",
			Help: "Items successfully processed by refresh job runs.",
		}, []string{"job"}),
	}
	reg.MustRegister(
		m.CacheHits, m.CacheMisses, m.GridHits, m.GridMisses, m.Degraded,
		m.InferenceLatency, m.JobDuration, m.JobFailures, m.JobProcessed,
	)
	return m
}

// NewNop returns metrics bound to a throwaway registry, for tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
