package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Channel metrics, labeled by channel name
	channelAllocs    *prometheus.GaugeVec
	channelWordsUsed *prometheus.GaugeVec
	channelWordsFree *prometheus.GaugeVec
	channelFirstSeq  *prometheus.GaugeVec

	// Guard recovery metrics
	forcedUnlocksTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eventring_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eventring_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eventring_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		channelAllocs: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eventring_channel_allocs",
				Help: "Records allocated over the channel's lifetime",
			},
			[]string{"channel"},
		),

		channelWordsUsed: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eventring_channel_words_used",
				Help: "Committed words not yet consumed",
			},
			[]string{"channel"},
		),

		channelWordsFree: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eventring_channel_words_free",
				Help: "Words available for new reservations",
			},
			[]string{"channel"},
		),

		channelFirstSeq: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "eventring_channel_first_seq",
				Help: "Sequence number of the oldest record in the channel",
			},
			[]string{"channel"},
		),

		forcedUnlocksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "eventring_forced_unlocks_total",
				Help: "Guard words forcibly cleared after the spin limit",
			},
		),
	}

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordForcedUnlock records a guard word forcibly cleared by the spin-limit
// heuristic. Wire it to ring.Ring.OnForcedUnlock.
func (m *Metrics) RecordForcedUnlock(string) {
	m.forcedUnlocksTotal.Inc()
}

// UpdateChannelStats publishes one channel's cursor-derived gauges.
func (m *Metrics) UpdateChannelStats(name string, allocs, used, free uint32, firstSeq uint64) {
	m.channelAllocs.WithLabelValues(name).Set(float64(allocs))
	m.channelWordsUsed.WithLabelValues(name).Set(float64(used))
	m.channelWordsFree.WithLabelValues(name).Set(float64(free))
	m.channelFirstSeq.WithLabelValues(name).Set(float64(firstSeq))
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
