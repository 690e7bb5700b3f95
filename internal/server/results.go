package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/eipp/mindburn-aletheia-sub003/internal/storage"
)

// handleRecentResults handles GET /api/results — the audit log of emitted
// decisions, newest first. ?hours= sets the lookback (default 24),
// ?limit= bounds the page (default 100).
func (s *Server) handleRecentResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeError(w, http.StatusNotFound, "audit log not enabled")
		return
	}

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = n
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour).UnixMilli()
	rows, err := s.results.RecentResults(r.Context(), since, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read audit log")
		return
	}
	if rows == nil {
		rows = []storage.ResultRecord{}
	}
	writeJSON(w, http.StatusOK, rows)
}
