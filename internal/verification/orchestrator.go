package verification

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/eipp/mindburn-aletheia-sub003/internal/metrics"
	"github.com/eipp/mindburn-aletheia-sub003/internal/quality"
)

// Orchestrator is the top-level verification entry point. It validates the
// submission set, snapshots worker metrics, runs fraud analysis, delegates
// to the consensus Engine, and pushes best-effort metric updates.
//
// Different tasks may be verified concurrently with no shared mutable
// state. Calls for the SAME task ID must be serialized by the caller; the
// orchestrator does not lock per task.
type Orchestrator struct {
	cfg      Config
	engine   *Engine
	scorer   *quality.Scorer
	store    WorkerMetricsStore
	history  PerformanceHistoryStore
	fraud    FraudAnalyzer
	validate *validator.Validate
}

// NewOrchestrator wires the verification core. store, history, and fraud
// are the external collaborators from the composition root.
func NewOrchestrator(cfg Config, qcfg quality.Config, store WorkerMetricsStore, history PerformanceHistoryStore, fraud FraudAnalyzer) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		engine:   NewEngine(cfg),
		scorer:   quality.NewScorer(qcfg),
		store:    store,
		history:  history,
		fraud:    fraud,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Engine exposes the underlying consensus engine, mainly for callers that
// want pure consensus without orchestration.
func (o *Orchestrator) Engine() *Engine { return o.engine }

// Scorer exposes the quality scorer used for metric updates.
func (o *Orchestrator) Scorer() *quality.Scorer { return o.scorer }

// VerifyTask produces exactly one VerificationResult per call. The input
// task and submissions are never mutated. Returns a typed error
// (ValidationError, ConsensusError) when the call aborts with no result.
func (o *Orchestrator) VerifyTask(ctx context.Context, task *VerificationTask, submissions []WorkerSubmission) (*VerificationResult, error) {
	start := time.Now()

	if err := o.validate.Struct(task); err != nil {
		metrics.ValidationFailuresTotal.Inc()
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed task: %v", err)}
	}

	// Per-submission validation runs first: a duplicate worker or a bad
	// duration is a hard failure regardless of set size.
	if err := o.validateSubmissions(task, submissions); err != nil {
		metrics.ValidationFailuresTotal.Inc()
		return nil, err
	}

	// Too few submissions is a review outcome, not a hard failure: the
	// caller re-invokes with a larger set. Neither fraud analysis nor
	// consensus runs on an undersized set.
	if len(submissions) < task.Requirements.MinSubmissions {
		result := &VerificationResult{
			ResultID:        uuid.NewString(),
			TaskID:          task.TaskID,
			Status:          StatusNeedsReview,
			ConfidenceLevel: ConfidenceLow,
			ProcessedAt:     time.Now().UnixMilli(),
			Metadata: map[string]any{
				"insufficient_submissions": true,
				"submission_count":         len(submissions),
				"min_submissions":          task.Requirements.MinSubmissions,
			},
		}
		o.observe(result, task, start)
		return result, nil
	}

	workerMetrics := o.fetchMetrics(ctx, submissions)

	fraudReport, err := o.fraud.Analyze(ctx, task, submissions)
	if err != nil {
		// Fail closed: a task whose submission set could not be screened
		// goes to review instead of being verified unchecked.
		log.Printf("WARNING: fraud analysis failed for task %s, routing to review: %v", task.TaskID, err)
		result := &VerificationResult{
			ResultID:        uuid.NewString(),
			TaskID:          task.TaskID,
			Status:          StatusNeedsReview,
			ConfidenceLevel: ConfidenceLow,
			ProcessedAt:     time.Now().UnixMilli(),
			Metadata: map[string]any{
				"fraud_analysis_failed": true,
				"failure_reason":        (&FraudAnalysisError{Err: err}).Error(),
			},
		}
		o.observe(result, task, start)
		return result, nil
	}
	metrics.FraudRiskTotal.WithLabelValues(string(fraudReport.RiskLevel)).Inc()

	if fraudReport.RiskLevel == RiskHigh {
		// Corrupted session: no verdict, no quality updates.
		result := &VerificationResult{
			ResultID:        uuid.NewString(),
			TaskID:          task.TaskID,
			Status:          StatusFailed,
			ConfidenceLevel: ConfidenceLow,
			FraudDetection:  fraudReport,
			ProcessedAt:     time.Now().UnixMilli(),
			Metadata: map[string]any{
				"failure_reason": "high fraud risk detected",
			},
		}
		o.observe(result, task, start)
		return result, nil
	}

	result, err := o.engine.Calculate(task, submissions, workerMetrics)
	if err != nil {
		return nil, err
	}
	result.FraudDetection = fraudReport

	if ratio, ok := result.Metadata["confidence"].(float64); ok {
		metrics.ConsensusConfidence.Observe(ratio)
	}

	o.writeBack(ctx, task, result.WorkerMetrics)

	o.observe(result, task, start)
	return result, nil
}

// validateSubmissions applies the fail-fast input rules: one invalid
// submission aborts the whole call.
func (o *Orchestrator) validateSubmissions(task *VerificationTask, submissions []WorkerSubmission) error {
	seen := make(map[string]bool, len(submissions))
	limitMs := int64(task.Requirements.TimeLimitSeconds) * 1000

	for _, s := range submissions {
		if seen[s.WorkerID] {
			return &ValidationError{Reason: fmt.Sprintf("duplicate submission from worker %s", s.WorkerID)}
		}
		seen[s.WorkerID] = true

		if s.CompletedAt < s.StartedAt {
			return &ValidationError{
				Reason: fmt.Sprintf("submission %s completed before it started", s.SubmissionID),
			}
		}

		if limitMs > 0 && s.CompletedAt-s.StartedAt > limitMs {
			return &ValidationError{
				Reason: fmt.Sprintf("submission %s exceeded time limit of %ds", s.SubmissionID, task.Requirements.TimeLimitSeconds),
			}
		}
	}
	return nil
}

// fetchMetrics snapshots metrics for every distinct worker, concurrently
// and bounded. A failed fetch substitutes the neutral profile with a
// warning; it is never fatal.
func (o *Orchestrator) fetchMetrics(ctx context.Context, submissions []WorkerSubmission) map[string]*WorkerMetrics {
	workers := distinctWorkers(submissions)

	var mu sync.Mutex
	out := make(map[string]*WorkerMetrics, len(workers))

	o.forEachWorker(workers, func(workerID string) {
		m, err := o.store.Get(ctx, workerID)
		if err != nil {
			log.Printf("WARNING: metrics fetch failed for worker %s, using neutral defaults: %v", workerID, err)
			metrics.MetricsFetchFallbacksTotal.Inc()
			m = o.cfg.neutralMetrics(workerID)
		}
		mu.Lock()
		out[workerID] = m
		mu.Unlock()
	})

	return out
}

// writeBack pushes one metrics update per worker, concurrently. Each
// worker's update is independent: one failure is logged and never affects
// the others or the verdict already computed.
func (o *Orchestrator) writeBack(ctx context.Context, task *VerificationTask, qualities []SubmissionQuality) {
	byWorker := make(map[string]SubmissionQuality, len(qualities))
	workers := make([]string, 0, len(qualities))
	for _, q := range qualities {
		byWorker[q.WorkerID] = q
		workers = append(workers, q.WorkerID)
	}

	o.forEachWorker(workers, func(workerID string) {
		q := byWorker[workerID]
		delta, err := o.buildDelta(ctx, task, q)
		if err != nil {
			log.Printf("WARNING: skipping metrics update for worker %s: %v", workerID, err)
			metrics.WritebackFailuresTotal.Inc()
			return
		}
		if err := o.store.Put(ctx, workerID, delta); err != nil {
			log.Printf("WARNING: metrics write-back failed for worker %s: %v", workerID, err)
			metrics.WritebackFailuresTotal.Inc()
		}
	})
}

// buildDelta derives the stored-metric update for one submission from the
// worker's history: consistency over the accuracy window, speed against
// the task-type average.
func (o *Orchestrator) buildDelta(ctx context.Context, task *VerificationTask, q SubmissionQuality) (MetricsDelta, error) {
	hist, err := o.history.History(ctx, q.WorkerID)
	if err != nil {
		return MetricsDelta{}, &QualityError{WorkerID: q.WorkerID, Err: err}
	}

	consistency := o.scorer.Consistency(hist.RecentAccuracies(), q.Accuracy)
	speed := o.scorer.Speed(float64(q.TimeSpentMs), hist.TaskTypeAverages[task.ContentType])

	return MetricsDelta{
		Accuracy:    q.Accuracy,
		Consistency: consistency,
		SpeedScore:  speed,
		TimeSpentMs: q.TimeSpentMs,
		TaskType:    task.ContentType,
	}, nil
}

// forEachWorker fans fn out over worker IDs with bounded concurrency and
// waits for completion. Order is irrelevant by contract.
func (o *Orchestrator) forEachWorker(workers []string, fn func(workerID string)) {
	limit := o.cfg.MaxFetchConcurrency
	if limit <= 0 || limit > len(workers) {
		limit = len(workers)
	}
	if limit == 0 {
		return
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		sem <- struct{}{}
		go func(workerID string) {
			defer wg.Done()
			defer func() { <-sem }()
			fn(workerID)
		}(w)
	}
	wg.Wait()
}

func distinctWorkers(submissions []WorkerSubmission) []string {
	seen := make(map[string]bool, len(submissions))
	out := make([]string, 0, len(submissions))
	for _, s := range submissions {
		if !seen[s.WorkerID] {
			seen[s.WorkerID] = true
			out = append(out, s.WorkerID)
		}
	}
	return out
}

func (o *Orchestrator) observe(result *VerificationResult, task *VerificationTask, start time.Time) {
	metrics.VerificationsTotal.WithLabelValues(string(result.Status), string(task.ConsensusStrategy)).Inc()
	metrics.VerificationDurationSeconds.Observe(time.Since(start).Seconds())
}
