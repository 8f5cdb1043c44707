package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects Prometheus metrics for upstream calls and the fallback
// chains built on top of them.
type Recorder struct {
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	trendSources    *prometheus.CounterVec
	agentRuns       *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	gatherer        prometheus.Gatherer
}

// New creates a recorder registered on reg. Pass a fresh registry in tests.
func New(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		upstreamCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_upstream_calls_total",
				Help: "Total number of upstream calls by outcome",
			},
			[]string{"upstream", "outcome"},
		),
		upstreamLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulse_upstream_duration_seconds",
				Help:    "Duration of upstream calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"upstream"},
		),
		trendSources: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_trend_responses_total",
				Help: "Trend responses served by data source",
			},
			[]string{"source"},
		),
		agentRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_agent_runs_total",
				Help: "Agent runs by inference path",
			},
			[]string{"path"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulse_http_requests_total",
				Help: "HTTP requests served by route and status class",
			},
			[]string{"route", "status"},
		),
		gatherer: reg,
	}
}

// ObserveUpstream records one upstream call
func (r *Recorder) ObserveUpstream(upstream, outcome string, seconds float64) {
	r.upstreamCalls.WithLabelValues(upstream, outcome).Inc()
	r.upstreamLatency.WithLabelValues(upstream).Observe(seconds)
}

// RecordTrendSource records which step of the trends chain answered
func (r *Recorder) RecordTrendSource(source string) {
	r.trendSources.WithLabelValues(source).Inc()
}

// RecordAgentRun records which inference path an agent run took
func (r *Recorder) RecordAgentRun(path string) {
	r.agentRuns.WithLabelValues(path).Inc()
}

// RecordHTTPRequest records a served HTTP request
func (r *Recorder) RecordHTTPRequest(route, status string) {
	r.httpRequests.WithLabelValues(route, status).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
