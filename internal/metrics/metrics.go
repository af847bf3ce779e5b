package metrics

import (
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the validation pipeline and the
// upstream address service. All methods are safe on a nil receiver.
type Metrics struct {
	PipelineRuns        *prometheus.CounterVec
	PipelineDuration    prometheus.Histogram
	ValidationCalls     prometheus.Counter
	UpstreamRequests    *prometheus.CounterVec
	UpstreamDuration    *prometheus.HistogramVec
	TokenExchanges      *prometheus.CounterVec
	Corrections         *prometheus.CounterVec
	CorrectionDistance  prometheus.Histogram
	LookupCacheRequests *prometheus.CounterVec
}

// New registers all metrics on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PipelineRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "address_pipeline_runs_total",
			Help: "Pipeline runs by result status and quality",
		}, []string{"status", "quality"}),
		PipelineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "address_pipeline_duration_seconds",
			Help:    "Duration of a full correction pipeline run",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ValidationCalls: f.NewCounter(prometheus.CounterOpts{
			Name: "address_pipeline_validation_calls_total",
			Help: "Full validation calls issued by the pipeline",
		}),
		UpstreamRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "address_upstream_requests_total",
			Help: "Upstream address service requests by operation and outcome",
		}, []string{"operation", "outcome"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "address_upstream_request_duration_seconds",
			Help:    "Upstream address service latency",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"operation"}),
		TokenExchanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "address_oauth_token_exchanges_total",
			Help: "OAuth client-credentials exchanges by outcome",
		}, []string{"outcome"}),
		Corrections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "address_corrections_total",
			Help: "Applied corrections by type",
		}, []string{"type"}),
		CorrectionDistance: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "address_correction_edit_distance",
			Help:    "Levenshtein distance between old and new value of string corrections",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		LookupCacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "address_lookup_cache_requests_total",
			Help: "Lookup cache hits and misses by operation",
		}, []string{"operation", "result"}),
	}
}

// ObservePipelineRun records one finished run.
// Call with time.Now() at the start of the run.
func (m *Metrics) ObservePipelineRun(start time.Time, status, quality string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(status, quality).Inc()
	m.PipelineDuration.Observe(time.Since(start).Seconds())
}

// IncrementValidationCalls counts one full validation call.
func (m *Metrics) IncrementValidationCalls() {
	if m == nil {
		return
	}
	m.ValidationCalls.Inc()
}

// ObserveUpstream records an upstream request.
func (m *Metrics) ObserveUpstream(operation, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(operation, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// IncrementTokenExchange counts a token exchange.
func (m *Metrics) IncrementTokenExchange(outcome string) {
	if m == nil {
		return
	}
	m.TokenExchanges.WithLabelValues(outcome).Inc()
}

// ObserveCorrection counts a correction; string pairs also record their edit distance.
func (m *Metrics) ObserveCorrection(correctionType string, old, new interface{}) {
	if m == nil {
		return
	}
	m.Corrections.WithLabelValues(correctionType).Inc()
	o, ok1 := old.(string)
	n, ok2 := new.(string)
	if ok1 && ok2 {
		m.CorrectionDistance.Observe(float64(levenshtein.ComputeDistance(o, n)))
	}
}

// ObserveLookupCache records a lookup cache hit or miss.
func (m *Metrics) ObserveLookupCache(operation string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.LookupCacheRequests.WithLabelValues(operation, result).Inc()
}
