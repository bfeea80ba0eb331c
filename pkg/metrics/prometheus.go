package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder is the production Recorder, grounded on the teacher's
// metric-name/tag-map shape but exported as fixed CounterVec/HistogramVec
// collectors the way polarismesh's prometheus reporter registers its
// rate-limit and circuit-breaker gauges.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	checks         *prometheus.CounterVec
	checkDuration  *prometheus.HistogramVec
	storeErrors    *prometheus.CounterVec
	breakerChanges *prometheus.CounterVec
}

// NewPrometheusRecorder builds a Recorder backed by its own registry, so a
// process embedding this package never collides with metrics some other
// library registers against prometheus.DefaultRegisterer.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusRecorder{
		registry: registry,
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimitd_checks_total",
			Help: "Total admission checks by client, algorithm and outcome.",
		}, []string{"client_id", "algorithm", "outcome"}),
		checkDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ratelimitd_check_duration_seconds",
			Help:    "Latency of admission checks by algorithm.",
			Buckets: prometheus.DefBuckets,
		}, []string{"algorithm"}),
		storeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimitd_store_errors_total",
			Help: "Total store operation failures by operation.",
		}, []string{"op"}),
		breakerChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimitd_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions.",
		}, []string{"from", "to"}),
	}
}

func (p *PrometheusRecorder) CheckResult(clientID, algorithm, outcome string) {
	p.checks.WithLabelValues(clientID, algorithm, outcome).Inc()
}

func (p *PrometheusRecorder) CheckDuration(algorithm string, seconds float64) {
	p.checkDuration.WithLabelValues(algorithm).Observe(seconds)
}

func (p *PrometheusRecorder) StoreError(op string) {
	p.storeErrors.WithLabelValues(op).Inc()
}

func (p *PrometheusRecorder) CircuitStateChange(from, to string) {
	p.breakerChanges.WithLabelValues(from, to).Inc()
}

// Handler returns the HTTP handler that exposes this recorder's registry in
// the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
