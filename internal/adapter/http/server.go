// Package http exposes the rainfall resolution API along with health,
// readiness, and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/floodcast/rainfall-resolver/internal/domain"
	"github.com/floodcast/rainfall-resolver/internal/rainfall"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// RainfallResolver is the facade the API delegates to.
type RainfallResolver interface {
	Resolve(ctx context.Context, loc domain.Location, date time.Time) (domain.ResolvedRainfall, error)
}

// Server exposes the rainfall API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	service    RainfallResolver
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /v1/rainfall, /healthz, /readyz, and
// /metrics routes.
func NewServer(addr string, service RainfallResolver, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		logger:  logger,
	}

	mux.HandleFunc("GET /v1/rainfall", s.handleRainfall)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
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

// handleRainfall resolves the daily and accumulated figures for a location
// and date. An unresolved result is still a 200: the body says what was
// tried, and absence of a figure is never rendered as zero.
func (s *Server) handleRainfall(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		writeError(w, http.StatusBadRequest, "lat must be a number between -90 and 90")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "lon must be a number between -180 and 180")
		return
	}

	loc := domain.Location{Lat: lat, Lon: lon}
	if v := q.Get("radius_m"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil || radius < 0 {
			writeError(w, http.StatusBadRequest, "radius_m must be a non-negative number")
			return
		}
		loc.RadiusMeters = radius
	}

	date := domain.Today()
	if v := q.Get("date"); v != "" {
		date, err = time.Parse(domain.DateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
			return
		}
	}

	result, err := s.service.Resolve(r.Context(), loc, date)
	if err != nil {
		s.logger.Error("resolve rainfall", "error", err)
		writeError(w, http.StatusInternalServerError, "resolution failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
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

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

// rainfall.Service satisfies RainfallResolver.
var _ RainfallResolver = (*rainfall.Service)(nil)
