// Package metrics owns the Prometheus registry and the workboard counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a private registry plus the counters the app records into.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	cardsCreated    *prometheus.CounterVec
	llmRequests     *prometheus.CounterVec
	chatIntents     *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates and registers the workboard metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cardsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workboard_cards_created_total",
				Help: "Total number of cards added to the board",
			},
			[]string{"source"},
		),
		llmRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workboard_llm_requests_total",
				Help: "Total number of chat-completion requests by outcome",
			},
			[]string{"outcome"},
		),
		chatIntents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workboard_chat_intents_total",
				Help: "Total number of chat messages by classified intent",
			},
			[]string{"intent"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workboard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "workboard_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
	m.registry.MustRegister(m.cardsCreated, m.llmRequests, m.chatIntents, m.requestsTotal, m.requestDuration)
	return m
}

// CardCreated counts one card added from source.
func (m *Metrics) CardCreated(source string) {
	if m == nil {
		return
	}
	m.cardsCreated.WithLabelValues(source).Inc()
}

// LLMRequest counts one completion attempt with the given outcome.
func (m *Metrics) LLMRequest(outcome string) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(outcome).Inc()
}

// ChatIntent counts one classified chat message.
func (m *Metrics) ChatIntent(intent string) {
	if m == nil {
		return
	}
	m.chatIntents.WithLabelValues(intent).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request counts and latency, labelled by the matched
// ServeMux pattern to keep path cardinality low.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		m.requestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
