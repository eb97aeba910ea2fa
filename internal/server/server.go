// Package server exposes the ingestion pipeline and the persisted inventory
// over HTTP: multipart upload for ingest, filtered device listings, a
// websocket progress stream, and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/calebrow/fleetsift/internal/ingest"
	"github.com/calebrow/fleetsift/internal/inventory"
	"github.com/calebrow/fleetsift/internal/version"
	"github.com/calebrow/fleetsift/pkg/models"
)

// Server is the main FleetSift server.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux

	parser  *ingest.Parser
	repo    inventory.Repository
	mapping *models.LocationMapping
	hub     *EventHub
}

// Deps carries the collaborators the server routes to.
type Deps struct {
	Parser   *ingest.Parser
	Repo     inventory.Repository
	Mapping  *models.LocationMapping // optional; nil means built-in tables
	Registry *prometheus.Registry    // optional; nil disables /metrics
}

// New creates a new Server instance.
func New(addr string, deps Deps, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:  logger,
		mux:     mux,
		parser:  deps.Parser,
		repo:    deps.Repo,
		mapping: deps.Mapping,
		hub:     NewEventHub(logger),
	}

	s.registerRoutes(deps.Registry)

	return s
}

func (s *Server) registerRoutes(registry *prometheus.Registry) {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/ingest", s.handleIngest)
	s.mux.HandleFunc("GET /api/v1/devices", s.handleListDevices)
	s.mux.HandleFunc("GET /api/v1/devices/{id}", s.handleGetDevice)
	s.mux.HandleFunc("DELETE /api/v1/devices/{id}", s.handleDeleteDevice)
	s.mux.HandleFunc("GET /api/v1/events", s.hub.HandleSubscribe)

	if registry != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying mux, for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-FleetSift-Version", version.Short())
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"service": "fleetsift",
		"version": version.Map(),
	})
}
