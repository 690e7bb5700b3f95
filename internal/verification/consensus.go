package verification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Engine reconciles a set of worker submissions into a single verdict with
// a calibrated confidence level. It is pure computation over its inputs:
// no I/O, no shared state, deterministic for a fixed input.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine with the given tunables.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// tally accumulates agreement for one distinct result value.
type tally struct {
	result    json.RawMessage
	count     int
	weight    float64
	firstSeen int // index of the first submission carrying this result
}

// Calculate derives the consensus verdict for a task. The caller guarantees
// len(submissions) >= the task's minimum; the minimum-submissions path is
// handled before this engine is invoked. workerMetrics is a pre-call
// snapshot keyed by worker ID; workers absent from it carry zero weight
// under WEIGHTED (an unknown worker has no influence on the verdict).
func (e *Engine) Calculate(task *VerificationTask, submissions []WorkerSubmission, workerMetrics map[string]*WorkerMetrics) (*VerificationResult, error) {
	tallies, order, err := e.groupByResult(submissions)
	if err != nil {
		return nil, &ConsensusError{Strategy: task.ConsensusStrategy, Err: err}
	}

	var (
		consensus json.RawMessage
		ratio     float64
		level     ConfidenceLevel
	)

	switch task.ConsensusStrategy {
	case StrategyMajority:
		consensus, ratio = e.majority(tallies, order, len(submissions))
		level = e.cfg.confidenceLevel(ratio)
	case StrategyWeighted:
		consensus, ratio = e.weighted(tallies, order, submissions, workerMetrics)
		level = e.cfg.confidenceLevel(ratio)
	case StrategyUnanimous:
		// Binary confidence: full agreement or nothing.
		if len(order) == 1 {
			consensus = tallies[order[0]].result
			ratio = 1
			level = ConfidenceHigh
		} else {
			consensus = nil
			ratio = 0
			level = ConfidenceLow
		}
	default:
		return nil, &ConsensusError{
			Strategy: task.ConsensusStrategy,
			Err:      fmt.Errorf("unknown consensus strategy"),
		}
	}

	status := e.determineStatus(level, task.Requirements.QualityThreshold)
	quality := e.submissionQuality(submissions, consensus, workerMetrics)

	return &VerificationResult{
		ResultID:        uuid.NewString(),
		TaskID:          task.TaskID,
		Status:          status,
		Consensus:       consensus,
		ConfidenceLevel: level,
		WorkerMetrics:   quality,
		ProcessedAt:     time.Now().UnixMilli(),
		Metadata: map[string]any{
			"strategy":         string(task.ConsensusStrategy),
			"submission_count": len(submissions),
			"confidence":       ratio,
		},
	}, nil
}

// groupByResult buckets submissions by canonical fingerprint. order lists
// fingerprints by first appearance, which is the documented tie-break for
// MAJORITY: ties go to the earliest-seen result, never to map iteration
// order.
func (e *Engine) groupByResult(submissions []WorkerSubmission) (map[string]*tally, []string, error) {
	tallies := make(map[string]*tally, len(submissions))
	order := make([]string, 0, len(submissions))

	for i, s := range submissions {
		fp, err := Fingerprint(s.Result)
		if err != nil {
			return nil, nil, fmt.Errorf("submission %s: %w", s.SubmissionID, err)
		}
		t, ok := tallies[fp]
		if !ok {
			t = &tally{result: s.Result, firstSeen: i}
			tallies[fp] = t
			order = append(order, fp)
		}
		t.count++
	}
	return tallies, order, nil
}

// majority returns the most common result and its share of all submissions.
func (e *Engine) majority(tallies map[string]*tally, order []string, total int) (json.RawMessage, float64) {
	var best *tally
	for _, fp := range order {
		t := tallies[fp]
		if best == nil || t.count > best.count {
			best = t
		}
	}
	if best == nil || total == 0 {
		return nil, 0
	}
	return best.result, float64(best.count) / float64(total)
}

// weighted sums per-worker reliability weights per distinct result and
// returns the heaviest one with its share of the total weight. Workers
// without a metrics snapshot contribute zero weight.
func (e *Engine) weighted(tallies map[string]*tally, order []string, submissions []WorkerSubmission, workerMetrics map[string]*WorkerMetrics) (json.RawMessage, float64) {
	for _, s := range submissions {
		m, ok := workerMetrics[s.WorkerID]
		if !ok || m == nil {
			continue
		}
		fp, err := Fingerprint(s.Result)
		if err != nil {
			continue // already fingerprinted once in groupByResult
		}
		w := m.Accuracy*e.cfg.WeightAccuracy +
			m.Consistency*e.cfg.WeightConsistency +
			m.ReputationScore*e.cfg.WeightReputation
		tallies[fp].weight += w
	}

	var (
		best        *tally
		totalWeight float64
	)
	for _, fp := range order {
		t := tallies[fp]
		totalWeight += t.weight
		if best == nil || t.weight > best.weight {
			best = t
		}
	}
	if best == nil || totalWeight == 0 {
		return nil, 0
	}
	return best.result, best.weight / totalWeight
}

// determineStatus applies the status rules in order. A task quality
// threshold below the review floor forces NEEDS_REVIEW even under HIGH
// confidence; the rule is preserved as specified and is intentionally not
// "fixed" here.
func (e *Engine) determineStatus(level ConfidenceLevel, qualityThreshold float64) Status {
	if level == ConfidenceHigh && qualityThreshold >= e.cfg.CompleteQuality {
		return StatusCompleted
	}
	if level == ConfidenceLow || qualityThreshold < e.cfg.ReviewQuality {
		return StatusNeedsReview
	}
	return StatusCompleted
}

// submissionQuality builds the per-submission quality deltas: binary
// agreement with the verdict, time spent, and the worker's pre-call
// consistency snapshot.
func (e *Engine) submissionQuality(submissions []WorkerSubmission, consensus json.RawMessage, workerMetrics map[string]*WorkerMetrics) []SubmissionQuality {
	var consensusFP string
	if consensus != nil {
		consensusFP, _ = Fingerprint(consensus)
	}

	out := make([]SubmissionQuality, 0, len(submissions))
	for _, s := range submissions {
		accuracy := 0.0
		if consensusFP != "" {
			if fp, err := Fingerprint(s.Result); err == nil && fp == consensusFP {
				accuracy = 1.0
			}
		}
		var consistency float64
		if m, ok := workerMetrics[s.WorkerID]; ok && m != nil {
			consistency = m.Consistency
		}
		out = append(out, SubmissionQuality{
			SubmissionID:     s.SubmissionID,
			WorkerID:         s.WorkerID,
			Accuracy:         accuracy,
			TimeSpentMs:      s.CompletedAt - s.StartedAt,
			ConsistencyScore: consistency,
		})
	}
	return out
}
