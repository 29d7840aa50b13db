package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dp-normalizer/api/internal/llm"
	"dp-normalizer/api/internal/normalize"
)

const namespace = "dp_normalizer"

// Metrics records pipeline outcomes on its own registry.
type Metrics struct {
	registry  *prometheus.Registry
	outcomes  *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	calls     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalizations_total",
			Help:      "Finished normalizations by profile and outcome.",
		}, []string{"profile", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_calls_total",
			Help:      "Translation calls issued after an unusable first reply.",
		}, []string{"profile"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Model calls issued by the pipeline.",
		}, []string{"profile"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "normalization_seconds",
			Help:      "Wall time of a normalization, model calls included.",
			Buckets:   []float64{0.01, 0.1, 1, 5, 15, 30, 60, 120, 240},
		}, []string{"profile"}),
	}
	m.registry.MustRegister(m.outcomes, m.fallbacks, m.calls, m.duration)
	return m
}

// ObserveNormalization implements normalize.Recorder.
func (m *Metrics) ObserveNormalization(p llm.Profile, o normalize.Outcome, elapsed time.Duration) {
	outcome := "success"
	if !o.OK() {
		outcome = o.Kind().String()
	}
	m.outcomes.WithLabelValues(p.Key, outcome).Inc()
	if o.FallbackUsed {
		m.fallbacks.WithLabelValues(p.Key).Inc()
	}
	if o.ModelCalls > 0 {
		m.calls.WithLabelValues(p.Key).Add(float64(o.ModelCalls))
	}
	m.duration.WithLabelValues(p.Key).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
