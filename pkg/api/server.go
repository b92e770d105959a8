// Package api exposes channel statistics and the sealed-segment catalog over
// a small REST surface, plus a Prometheus scrape endpoint. The server never
// touches record payloads: everything it reports comes from channel headers
// and the archive index, so it is safe to run beside live producers and
// consumers.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server holds the API server state
type Server struct {
	registry *Registry
	index    SegmentIndex
	config   ServerConfig
	metrics  *Metrics
}

// NewServer creates a new API server
func NewServer(registry *Registry, index SegmentIndex, config ServerConfig, metrics *Metrics) *Server {
	return &Server{
		registry: registry,
		index:    index,
		config:   config,
		metrics:  metrics,
	}
}

// Router builds the chi router with all routes configured.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.instrument("GET", "/api/v1/health", s.handleHealth))
		r.Get("/channels", s.instrument("GET", "/api/v1/channels", s.handleListChannels))
		r.Get("/channels/{name}/stats", s.instrument("GET", "/api/v1/channels/{name}/stats", s.handleChannelStats))
		r.Get("/segments", s.instrument("GET", "/api/v1/segments", s.handleListSegments))
	})

	return r
}

func (s *Server) instrument(method, endpoint string, h http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return h
	}
	return s.metrics.InstrumentHandler(method, endpoint, h)
}

// StartServer starts the HTTP server with all routes configured
func StartServer(registry *Registry, index SegmentIndex, config ServerConfig) error {
	metrics := NewMetrics()
	server := NewServer(registry, index, config, metrics)

	for _, name := range registry.Names() {
		if r, err := registry.Get(name); err == nil {
			r.OnForcedUnlock(metrics.RecordForcedUnlock)
		}
	}

	go server.startMetricsUpdater()

	addr := fmt.Sprintf(":%d", config.Port)
	log.Info().Str("addr", addr).Msg("starting stats server")
	return http.ListenAndServe(addr, server.Router())
}

// startMetricsUpdater periodically refreshes the per-channel gauges from the
// channel headers.
func (s *Server) startMetricsUpdater() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		for _, name := range s.registry.Names() {
			r, err := s.registry.Get(name)
			if err != nil {
				continue
			}
			st := r.Stats()
			s.metrics.UpdateChannelStats(name, st.NumAllocs, st.Used, st.Free, st.FirstSeq)
		}
	}
}
