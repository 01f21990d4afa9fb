// Package ops exposes health, diagnostics and repair reports over HTTP,
// plus the Prometheus metrics endpoint.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leadgrid/gatekeeper/internal/core/domain"
	"github.com/leadgrid/gatekeeper/internal/enrichment/failures"
	"github.com/leadgrid/gatekeeper/internal/enrichment/queue"
	"github.com/leadgrid/gatekeeper/internal/enrichment/throttle"
)

// Server provides HTTP endpoints for operational monitoring.
type Server struct {
	gate    *throttle.Gate
	router  *failures.Router
	requeue *queue.RequeueService
	server  *http.Server
}

// NewServer creates a new ops server.
func NewServer(gate *throttle.Gate, router *failures.Router, requeue *queue.RequeueService, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		gate:    gate,
		router:  router,
		requeue: requeue,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleDetailed)
	mux.HandleFunc("/repairs", s.handleRepairs)
	mux.HandleFunc("/vendors/reset-usage", s.handleResetUsage)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Degraded when any vendor circuit is open or manually disabled.
	status := "healthy"
	for _, vendor := range s.gate.Vendors() {
		diag, err := s.gate.Diagnostics(vendor)
		if err != nil {
			continue
		}
		if diag.Disabled || diag.Circuit == domain.CircuitOpen {
			status = "degraded"
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) handleDetailed(w http.ResponseWriter, r *http.Request) {
	vendors := make(map[domain.VendorID]throttle.Diagnostics)
	for _, vendor := range s.gate.Vendors() {
		diag, err := s.gate.Diagnostics(vendor)
		if err != nil {
			continue
		}
		vendors[vendor] = diag
	}

	response := map[string]any{
		"vendors":  vendors,
		"failures": s.router.Statistics(),
		"throttle": s.router.ThrottleStatistics(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleResetUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	vendor := domain.VendorID(r.URL.Query().Get("vendor"))
	if _, err := s.gate.Diagnostics(vendor); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.gate.ResetUsage(vendor)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "reset", "vendor": string(vendor)})
}

func (s *Server) handleRepairs(w http.ResponseWriter, r *http.Request) {
	report, err := s.requeue.GenerateRepairReport(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
