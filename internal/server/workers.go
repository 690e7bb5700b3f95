package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/eipp/mindburn-aletheia-sub003/internal/quality"
	"github.com/eipp/mindburn-aletheia-sub003/internal/verification"
)

// workerEligibility is the profile response when a minimum tier was asked
// for: the profile plus whether the worker clears that tier.
type workerEligibility struct {
	*verification.WorkerProfile
	MinTier  quality.Tier `json:"min_tier"`
	Eligible bool         `json:"eligible"`
}

// handleWorkerProfile handles GET /api/workers/{id} — the stored metrics
// plus the derived quality score and tier. ?min_tier= adds an eligibility
// verdict against that tier.
func (s *Server) handleWorkerProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "worker id is required")
		return
	}

	var minTier quality.Tier
	if v := r.URL.Query().Get("min_tier"); v != "" {
		t, err := quality.ParseTier(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_tier must be one of BEGINNER, INTERMEDIATE, ADVANCED, EXPERT")
			return
		}
		minTier = t
	}

	profile, err := s.orch.WorkerProfile(r.Context(), id)
	if err != nil {
		if errors.Is(err, verification.ErrWorkerNotFound) {
			writeError(w, http.StatusNotFound, "worker not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load worker profile")
		return
	}

	if minTier != "" {
		writeJSON(w, http.StatusOK, workerEligibility{
			WorkerProfile: profile,
			MinTier:       minTier,
			Eligible:      profile.Tier.AtLeast(minTier),
		})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleTopWorkers handles GET /api/workers/top — the quality ranking,
// best first. ?limit= bounds the page, default 10.
func (s *Server) handleTopWorkers(w http.ResponseWriter, r *http.Request) {
	if s.top == nil {
		writeError(w, http.StatusNotFound, "ranking not enabled")
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	workers, err := s.top(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load ranking")
		return
	}
	if workers == nil {
		workers = []verification.WorkerMetrics{}
	}
	writeJSON(w, http.StatusOK, workers)
}
