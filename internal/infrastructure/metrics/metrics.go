package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "predict"

// Metrics groups the collectors exported by the service
type Metrics struct {
	// OperationDuration observes wrapped operations by operation and outcome
	OperationDuration *prometheus.HistogramVec

	// PipelineLoads counts pipeline construction attempts by model and outcome
	PipelineLoads *prometheus.CounterVec

	// CacheLookups counts prediction cache lookups by model and result
	CacheLookups *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of instrumented operations.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation", "outcome"}),
		PipelineLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_loads_total",
			Help:      "Pipeline construction attempts.",
		}, []string{"model", "outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Prediction cache lookups.",
		}, []string{"model", "result"}),
	}

	if reg != nil {
		reg.MustRegister(m.OperationDuration, m.PipelineLoads, m.CacheLookups)
	}
	return m
}

// ObservePipelineLoad records the outcome of one pipeline construction
func (m *Metrics) ObservePipelineLoad(model string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.PipelineLoads.WithLabelValues(model, outcome).Inc()
}

// ObserveCacheLookup records a cache hit or miss
func (m *Metrics) ObserveCacheLookup(model string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(model, result).Inc()
}

// Durations returns the operation histogram, or nil for a nil Metrics
func (m *Metrics) Durations() *prometheus.HistogramVec {
	if m == nil {
		return nil
	}
	return m.OperationDuration
}
