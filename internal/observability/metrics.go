// Package observability exposes Prometheus metrics and OpenTelemetry
// tracing for the gateway.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors. A nil *Metrics is
// valid and turns every method into a no-op.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal prometheus.Counter
	memoryUsage   prometheus.Gauge
	apiLatency    *prometheus.HistogramVec
	llmRequests   *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	llmTokens     *prometheus.CounterVec
	uploadsTotal  *prometheus.CounterVec
	vectorsStored prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "app_requests_total",
			Help: "Total number of requests handled by the server.",
		}),
		memoryUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "app_memory_usage_bytes",
			Help: "Memory usage in bytes.",
		}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "app_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "app_llm_requests_total",
			Help: "LLM requests by model/status.",
		}, []string{"model", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "app_llm_request_duration_seconds",
			Help:    "LLM request latency in seconds by model/status.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"model", "status"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "app_llm_tokens_total",
			Help: "LLM tokens by model/direction.",
		}, []string{"model", "direction"}),
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "app_file_uploads_total",
			Help: "File uploads by outcome.",
		}, []string{"outcome"}),
		vectorsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "app_vectors_stored_total",
			Help: "Vectors written to the store.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		m.requestsTotal,
		m.memoryUsage,
		m.apiLatency,
		m.llmRequests,
		m.llmLatency,
		m.llmTokens,
		m.uploadsTotal,
		m.vectorsStored,
	)
	return m
}

// Handler serves the exposition endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetMemoryUsage(bytes float64) {
	if m == nil {
		return
	}
	m.memoryUsage.Set(bytes)
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.requestsTotal.Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ObserveLLM(model, status string, dur time.Duration, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	if model == "" {
		model = "unknown"
	}
	m.llmRequests.WithLabelValues(model, status).Inc()
	if dur > 0 {
		m.llmLatency.WithLabelValues(model, status).Observe(dur.Seconds())
	}
	if promptTokens > 0 {
		m.llmTokens.WithLabelValues(model, "input").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokens.WithLabelValues(model, "output").Add(float64(completionTokens))
	}
}

func (m *Metrics) IncUpload(outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddVectorsStored(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.vectorsStored.Add(float64(n))
}
