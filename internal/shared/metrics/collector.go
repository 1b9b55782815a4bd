package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider call outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomeError     = "error"
)

// Collector owns the process metrics on a private registry. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	retries          prometheus.Counter
	responseBytes    prometheus.Histogram
	recommendations  prometheus.Histogram
	classifiedErrors *prometheus.CounterVec
}

// NewCollector creates a collector with Go runtime and process collectors
// registered alongside the service metrics.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdcagent_http_requests_total",
			Help: "Total HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mdcagent_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		providerCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdcagent_provider_calls_total",
			Help: "Total provider calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		providerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mdcagent_provider_call_duration_seconds",
			Help:    "Provider call duration per attempt",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"operation"}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "mdcagent_provider_retries_total",
			Help: "Total provider call retries after transient failures",
		}),
		responseBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mdcagent_response_size_bytes",
			Help:    "Size of size-checked response payloads",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 7),
		}),
		recommendations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mdcagent_recommendations_filtered",
			Help:    "Recommendations remaining after filtering, per request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		classifiedErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mdcagent_errors_total",
			Help: "Total error responses by error code",
		}, []string{"error_code"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveHTTPRequest records one served request.
func (c *Collector) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveProviderCall records one provider attempt.
func (c *Collector) ObserveProviderCall(operation, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.providerCalls.WithLabelValues(operation, outcome).Inc()
	c.providerDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncRetries counts a retry wait.
func (c *Collector) IncRetries() {
	if c == nil {
		return
	}
	c.retries.Inc()
}

// ObserveResponseSize records the encoded size of a response payload.
func (c *Collector) ObserveResponseSize(bytes int) {
	if c == nil {
		return
	}
	c.responseBytes.Observe(float64(bytes))
}

// ObserveFiltered records how many recommendations survived filtering.
func (c *Collector) ObserveFiltered(count int) {
	if c == nil {
		return
	}
	c.recommendations.Observe(float64(count))
}

// IncError counts an error response by its error code.
func (c *Collector) IncError(code string) {
	if c == nil {
		return
	}
	c.classifiedErrors.WithLabelValues(code).Inc()
}
