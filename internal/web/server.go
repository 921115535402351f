// Package web exposes the Controller's seven operations over HTTP using
// chi for routing, plus a server-sent-events stream for subscribe_events.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerve-engine/nerve/internal/config"
	"github.com/nerve-engine/nerve/internal/controller"
	"github.com/nerve-engine/nerve/internal/domain"
	"github.com/nerve-engine/nerve/internal/logging"
)

// Server serves the NERVE HTTP API.
type Server struct {
	port        int
	logger      *logging.Logger
	cfg         *config.Config
	rateLimiter *RateLimiter
	controller  *controller.Controller
	registry    *prometheus.Registry
	startTime   time.Time
	router      chi.Router
}

// NewServer creates a Server bound to ctrl, listening on port. registry may
// be nil, in which case no /metrics route is registered (it answers 404).
func NewServer(port int, ctrl *controller.Controller, registry *prometheus.Registry) *Server {
	cfg := config.Get()

	logger, err := logging.New(logging.Config{
		Level:       logging.INFO,
		LogDir:      cfg.Logging.LogDir,
		EnableFile:  cfg.Logging.EnableFile,
		EnableJSON:  cfg.Logging.EnableJSON,
		EnableColor: cfg.Logging.EnableColor,
		Component:   "web",
		Version:     "1.0.0",
	})
	if err != nil || logger == nil {
		logger = logging.GetDefault()
	}

	s := &Server{
		port:        port,
		logger:      logger,
		cfg:         cfg,
		rateLimiter: NewRateLimiter(100, time.Minute),
		controller:  ctrl,
		registry:    registry,
		startTime:   time.Now(),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequest)
	r.Use(corsHeaders)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/regions/{regionID}", s.handleGetRegion)
	r.Get("/api/regions/{regionID}/azs", s.handleListAZs)
	r.With(s.rateLimiter.Limit).Post("/api/simulate", s.handleSimulate)
	r.With(s.rateLimiter.Limit).Post("/api/simulate/interruption", s.handleSimulateInterruption)
	r.With(s.rateLimiter.Limit).Post("/api/timeshift", s.handleComputeTimeshift)
	r.Get("/api/stats", s.handleDashboardStats)
	r.Get("/api/events", s.handleSubscribeEvents)

	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	return r
}

// Start blocks serving HTTP on s.port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting NERVE API at http://localhost%s", addr)
	fmt.Printf("NERVE API listening on http://localhost%s\n", addr)
	return http.ListenAndServe(addr, s.router)
}

func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"uptime_sec": time.Since(s.startTime).Seconds(),
		"version":    "1.0.0",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGetRegion(w http.ResponseWriter, r *http.Request) {
	regionID := chi.URLParam(r, "regionID")
	region, err := s.controller.GetRegion(regionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, region)
}

func (s *Server) handleListAZs(w http.ResponseWriter, r *http.Request) {
	regionID := chi.URLParam(r, "regionID")
	azs, err := s.controller.ListAZs(regionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, azs)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req domain.SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	resp, err := s.controller.Simulate(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSimulateInterruption(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckpointSimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	event, err := s.controller.SimulateInterruption(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleComputeTimeshift(w http.ResponseWriter, r *http.Request) {
	var req domain.TimeShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, s.controller.ComputeTimeshift(req))
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.DashboardStats())
}

// handleSubscribeEvents streams the event bus as server-sent events until
// the client disconnects.
func (s *Server) handleSubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, unsubscribe := s.controller.SubscribeEvents(16)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
