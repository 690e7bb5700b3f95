// Package server exposes the verification core over HTTP: task
// verification, worker profiles, the quality ranking, and the result
// audit log.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/eipp/mindburn-aletheia-sub003/internal/storage"
	"github.com/eipp/mindburn-aletheia-sub003/internal/verification"
)

// ResultLog is the audit log surface the server writes to and reads from.
// The SQLite store implements it. A nil log disables the results endpoint
// and skips recording.
type ResultLog interface {
	RecordResult(ctx context.Context, result *verification.VerificationResult) error
	RecentResults(ctx context.Context, since int64, limit int) ([]storage.ResultRecord, error)
}

// TopWorkersFunc lists the highest-quality workers, best first. A nil
// func disables the ranking endpoint.
type TopWorkersFunc func(ctx context.Context, limit int) ([]verification.WorkerMetrics, error)

// Server is the HTTP API for the verification engine.
type Server struct {
	orch    *verification.Orchestrator
	results ResultLog
	top     TopWorkersFunc
	limiter *rateLimiter
	mux     *http.ServeMux
}

// New creates a Server with all routes registered.
func New(orch *verification.Orchestrator, results ResultLog, top TopWorkersFunc) *Server {
	s := &Server{
		orch:    orch,
		results: results,
		top:     top,
		limiter: newRateLimiter(defaultRate, defaultWindow),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler. Every request passes the per-IP rate
// limit first.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.allow(getIP(r)) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	s.mux.ServeHTTP(w, r)
}

// routes registers all HTTP routes on the server mux.
func (s *Server) routes() {
	// Health
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Verification
	s.mux.HandleFunc("POST /api/verify", s.handleVerify)

	// Workers
	s.mux.HandleFunc("GET /api/workers/top", s.handleTopWorkers)
	s.mux.HandleFunc("GET /api/workers/{id}", s.handleWorkerProfile)

	// Audit log
	s.mux.HandleFunc("GET /api/results", s.handleRecentResults)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "aletheia-verify",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
