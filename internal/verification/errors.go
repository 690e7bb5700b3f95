package verification

import (
	"errors"
	"fmt"
)

// ErrWorkerNotFound is returned by WorkerMetricsStore.Get for workers
// without a stored profile.
var ErrWorkerNotFound = errors.New("worker metrics not found")

// ValidationError reports malformed input: too few submissions named as an
// error by the caller, a duplicate worker, or a time-limit breach. The call
// is aborted; the caller must fix the input before retrying.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// ConsensusError reports a fatal consensus engine fault, such as an unknown
// strategy.
type ConsensusError struct {
	Strategy ConsensusStrategy
	Err      error
}

func (e *ConsensusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("consensus failed (strategy %s): %v", e.Strategy, e.Err)
	}
	return fmt.Sprintf("consensus failed (strategy %s)", e.Strategy)
}

func (e *ConsensusError) Unwrap() error { return e.Err }

// QualityError reports a fatal fault while computing quality metrics from
// worker history.
type QualityError struct {
	WorkerID string
	Err      error
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("quality computation failed for worker %s: %v", e.WorkerID, e.Err)
}

func (e *QualityError) Unwrap() error { return e.Err }

// FraudAnalysisError wraps a fraud analyzer failure. The orchestrator
// handles it fail-closed: the task is sent to review rather than verified
// without a fraud check.
type FraudAnalysisError struct {
	Err error
}

func (e *FraudAnalysisError) Error() string {
	return fmt.Sprintf("fraud analysis failed: %v", e.Err)
}

func (e *FraudAnalysisError) Unwrap() error { return e.Err }
