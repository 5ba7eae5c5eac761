package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const endpoint = "/metrics"

// Server serves the /metrics endpoint.
type Server struct {
	server *http.Server
	log    zerolog.Logger
}

// NewServer creates a metrics server on addr exposing gatherer.
func NewServer(log zerolog.Logger, addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle(endpoint, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		server: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		log:    log.With().Str("component", "metrics").Logger(),
	}
}

// Handler returns the HTTP handler serving the endpoint.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	s.log.Info().Str("address", s.server.Addr).Str("endpoint", endpoint).Msg("metrics server started")
	go func() {
		if err := s.server.ListenAndServe(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				s.log.Debug().Msg("metrics server shut down")
				return
			}
			s.log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// Shutdown stops the server, waiting for in-flight scrapes until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
