package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/eipp/mindburn-aletheia-sub003/internal/verification"
)

// verifyRequest is the JSON body for running a verification round.
type verifyRequest struct {
	Task        verification.VerificationTask   `json:"task"`
	Submissions []verification.WorkerSubmission `json:"submissions"`
}

// handleVerify handles POST /api/verify — run the full verification flow
// for one task and return the result.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.orch.VerifyTask(r.Context(), &req.Task, req.Submissions)
	if err != nil {
		var vErr *verification.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		log.Printf("WARNING: verify task %s: %v", req.Task.TaskID, err)
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	// Audit log writes are best-effort: a failed append must not lose the
	// result.
	if s.results != nil {
		if err := s.results.RecordResult(r.Context(), result); err != nil {
			log.Printf("WARNING: record result for task %s: %v", result.TaskID, err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}
