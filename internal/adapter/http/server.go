// Package http exposes the operational endpoints of a long download run:
// liveness, readiness, Prometheus metrics, and the loaded station metadata.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okmeso/okmeso/internal/domain"
)

// ReadinessChecker reports whether station metadata has been loaded and
// downloads can proceed.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// StationLister serves the station metadata the /stations endpoint exposes.
type StationLister interface {
	Stations(ctx context.Context) (*domain.StationSet, error)
}

// Server exposes health, readiness, metrics, and station routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /stations routes.
func NewServer(addr string, ready ReadinessChecker, stations StationLister, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.HandleFunc("GET /stations", s.handleStations(stations))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// stationResponse is the wire form of one station's metadata.
type stationResponse struct {
	STID      string  `json:"stid"`
	Name      string  `json:"name"`
	County    string  `json:"county"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Elevation float64 `json:"elevation"`
}

func (s *Server) handleStations(stations StationLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set, err := stations.Stations(r.Context())
		if err != nil {
			s.logger.Error("station metadata unavailable", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		out := make([]stationResponse, 0, set.Len())
		for _, station := range set.All() {
			out = append(out, stationResponse{
				STID:      station.ID,
				Name:      station.Name,
				County:    station.County,
				Lat:       station.Lat,
				Lon:       station.Lon,
				Elevation: station.Elevation,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
