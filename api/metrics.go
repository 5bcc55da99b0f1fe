package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const codeTransportError = "error"

// transport metrics
var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mopinion",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Total number of HTTP attempts made against the Mopinion API",
	}, []string{"method", "code"})

	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mopinion",
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Length of time per HTTP attempt",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method"})

	RetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mopinion",
		Subsystem: "client",
		Name:      "retries_total",
		Help:      "Total number of attempts retried after a network error or gateway failure",
	}, []string{"method"})
)

// RegistererGatherer is satisfied by *prometheus.Registry.
type RegistererGatherer interface {
	prometheus.Registerer
	prometheus.Gatherer
}

// MetricsRegistry holds the client metrics. Callers exposing a /metrics
// endpoint can gather from it or register it with their own registry.
var MetricsRegistry RegistererGatherer = prometheus.NewRegistry()

func init() {
	MetricsRegistry.MustRegister(RequestsTotal, RequestDuration, RetriesTotal)
}

func observeAttempt(method string, resp *http.Response, err error, start time.Time) {
	code := codeTransportError
	if err == nil && resp != nil {
		code = strconv.Itoa(resp.StatusCode)
	}

	RequestsTotal.WithLabelValues(method, code).Inc()
	RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
