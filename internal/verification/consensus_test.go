package verification

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

// makeTask builds a task fixture with a quality threshold high enough to
// complete under HIGH confidence.
func makeTask(strategy ConsensusStrategy) *VerificationTask {
	return &VerificationTask{
		TaskID:            "task-1",
		ContentType:       "text",
		ConsensusStrategy: strategy,
		Requirements: TaskRequirements{
			MinSubmissions:   3,
			QualityThreshold: 0.9,
		},
	}
}

// makeSubmissions builds one submission per result payload, workers named
// worker-0, worker-1, ...
func makeSubmissions(t *testing.T, results ...string) []WorkerSubmission {
	t.Helper()
	subs := make([]WorkerSubmission, len(results))
	for i, r := range results {
		subs[i] = WorkerSubmission{
			SubmissionID: fmt.Sprintf("sub-%d", i),
			WorkerID:     fmt.Sprintf("worker-%d", i),
			TaskID:       "task-1",
			Result:       json.RawMessage(r),
			StartedAt:    1000,
			CompletedAt:  3000,
		}
	}
	return subs
}

// uniformMetrics gives every worker in subs the same profile.
func uniformMetrics(subs []WorkerSubmission, accuracy, consistency, reputation float64) map[string]*WorkerMetrics {
	out := make(map[string]*WorkerMetrics, len(subs))
	for _, s := range subs {
		out[s.WorkerID] = &WorkerMetrics{
			WorkerID:        s.WorkerID,
			Accuracy:        accuracy,
			Consistency:     consistency,
			SpeedScore:      0.5,
			ReputationScore: reputation,
		}
	}
	return out
}

func sameResult(t *testing.T, a, b json.RawMessage) bool {
	t.Helper()
	fpA, errA := Fingerprint(a)
	fpB, errB := Fingerprint(b)
	if errA != nil || errB != nil {
		t.Fatalf("fingerprint: %v / %v", errA, errB)
	}
	return fpA == fpB
}

func TestCalculate_UnanimousAgreement(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	subs := makeSubmissions(t, `{"approved":true}`, `{"approved":true}`, `{"approved":true}`)
	metrics := uniformMetrics(subs, 0.8, 0.8, 0.8)

	result, err := engine.Calculate(makeTask(StrategyUnanimous), subs, metrics)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.Status != StatusCompleted {
		t.Errorf("Status = %s, want COMPLETED", result.Status)
	}
	if result.ConfidenceLevel != ConfidenceHigh {
		t.Errorf("ConfidenceLevel = %s, want HIGH", result.ConfidenceLevel)
	}
	if !sameResult(t, result.Consensus, json.RawMessage(`{"approved":true}`)) {
		t.Errorf("Consensus = %s, want {\"approved\":true}", result.Consensus)
	}
}

func TestCalculate_AllStrategiesAgreeOnIdenticalResults(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	subs := makeSubmissions(t, `{"label":"ok"}`, `{"label":"ok"}`, `{"label":"ok"}`)
	metrics := uniformMetrics(subs, 0.7, 0.7, 0.7)

	for _, strategy := range []ConsensusStrategy{StrategyMajority, StrategyWeighted, StrategyUnanimous} {
		result, err := engine.Calculate(makeTask(strategy), subs, metrics)
		if err != nil {
			t.Fatalf("Calculate(%s): %v", strategy, err)
		}
		if result.ConfidenceLevel != ConfidenceHigh {
			t.Errorf("%s: ConfidenceLevel = %s, want HIGH", strategy, result.ConfidenceLevel)
		}
		if !sameResult(t, result.Consensus, json.RawMessage(`{"label":"ok"}`)) {
			t.Errorf("%s: wrong consensus %s", strategy, result.Consensus)
		}
	}
}

func TestCalculate_MajoritySplit(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	// 3 x A, 2 x B: confidence 0.6 -> MEDIUM, still COMPLETED with a 0.9
	// quality threshold.
	subs := makeSubmissions(t, `"A"`, `"A"`, `"B"`, `"A"`, `"B"`)
	metrics := uniformMetrics(subs, 0.8, 0.8, 0.8)

	result, err := engine.Calculate(makeTask(StrategyMajority), subs, metrics)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !sameResult(t, result.Consensus, json.RawMessage(`"A"`)) {
		t.Errorf("Consensus = %s, want \"A\"", result.Consensus)
	}
	if got := result.Metadata["confidence"].(float64); got != 0.6 {
		t.Errorf("confidence = %v, want 0.6", got)
	}
	if result.ConfidenceLevel != ConfidenceMedium {
		t.Errorf("ConfidenceLevel = %s, want MEDIUM", result.ConfidenceLevel)
	}
	if result.Status != StatusCompleted {
		t.Errorf("Status = %s, want COMPLETED", result.Status)
	}
}

func TestCalculate_MajorityTieGoesToFirstSeen(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	subs := makeSubmissions(t, `"B"`, `"A"`, `"B"`, `"A"`)
	metrics := uniformMetrics(subs, 0.8, 0.8, 0.8)

	result, err := engine.Calculate(makeTask(StrategyMajority), subs, metrics)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	// B appeared first; the 2-2 tie resolves in its favor.
	if !sameResult(t, result.Consensus, json.RawMessage(`"B"`)) {
		t.Errorf("Consensus = %s, want first-seen \"B\"", result.Consensus)
	}
}

func TestCalculate_WeightedReliableMinorityWins(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	subs := makeSubmissions(t, `"right"`, `"wrong"`, `"wrong"`)

	metrics := map[string]*WorkerMetrics{
		// worker-0 is highly reliable: weight 1.0*0.4 + 1.0*0.3 + 1.0*0.3 = 1.0.
		"worker-0": {WorkerID: "worker-0", Accuracy: 1, Consistency: 1, ReputationScore: 1},
		// The two agreeing workers carry 0.1 weight each.
		"worker-1": {WorkerID: "worker-1", Accuracy: 0.1, Consistency: 0.1, ReputationScore: 0.1},
		"worker-2": {WorkerID: "worker-2", Accuracy: 0.1, Consistency: 0.1, ReputationScore: 0.1},
	}

	result, err := engine.Calculate(makeTask(StrategyWeighted), subs, metrics)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !sameResult(t, result.Consensus, json.RawMessage(`"right"`)) {
		t.Errorf("Consensus = %s, want the reliable worker's \"right\"", result.Consensus)
	}
	// 1.0 / 1.2 ≈ 0.833 -> HIGH.
	if result.ConfidenceLevel != ConfidenceHigh {
		t.Errorf("ConfidenceLevel = %s, want HIGH", result.ConfidenceLevel)
	}
}

func TestCalculate_WeightedUnknownWorkersHaveNoInfluence(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	subs := makeSubmissions(t, `"X"`, `"X"`, `"Y"`)

	// worker-2 (voting Y) has no metrics snapshot: zero weight.
	metrics := map[string]*WorkerMetrics{
		"worker-0": {WorkerID: "worker-0", Accuracy: 0.5, Consistency: 0.5, ReputationScore: 0.5},
		"worker-1": {WorkerID: "worker-1", Accuracy: 0.5, Consistency: 0.5, ReputationScore: 0.5},
	}

	result, err := engine.Calculate(makeTask(StrategyWeighted), subs, metrics)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if !sameResult(t, result.Consensus, json.RawMessage(`"X"`)) {
		t.Errorf("Consensus = %s, want \"X\"", result.Consensus)
	}
	// All counted weight backs X.
	if got := result.Metadata["confidence"].(float64); got != 1.0 {
		t.Errorf("confidence = %v, want 1.0", got)
	}
}

func TestCalculate_WeightedIsDeterministic(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	subs := makeSubmissions(t, `"A"`, `"B"`, `"A"`, `"C"`, `"B"`)
	metrics := uniformMetrics(subs, 0.7, 0.6, 0.8)

	first, err := engine.Calculate(makeTask(StrategyWeighted), subs, metrics)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := engine.Calculate(makeTask(StrategyWeighted), subs, metrics)
		if err != nil {
			t.Fatalf("Calculate (run %d): %v", i, err)
		}
		if !sameResult(t, first.Consensus, again.Consensus) ||
			first.ConfidenceLevel != again.ConfidenceLevel ||
			first.Metadata["confidence"] != again.Metadata["confidence"] {
			t.Fatalf("run %d differs: %s/%s vs %s/%s", i,
				first.Consensus, first.ConfidenceLevel, again.Consensus, again.ConfidenceLevel)
		}
	}
}

func TestCalculate_UnanimousDisagreement(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	subs := makeSubmissions(t, `"A"`, `"A"`, `"B"`)
	metrics := uniformMetrics(subs, 0.8, 0.8, 0.8)

	result, err := engine.Calculate(makeTask(StrategyUnanimous), subs, metrics)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.Consensus != nil {
		t.Errorf("Consensus = %s, want nil", result.Consensus)
	}
	if result.ConfidenceLevel != ConfidenceLow {
		t.Errorf("ConfidenceLevel = %s, want LOW", result.ConfidenceLevel)
	}
	if result.Status != StatusNeedsReview {
		t.Errorf("Status = %s, want NEEDS_REVIEW", result.Status)
	}
}

func TestCalculate_UnknownStrategy(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	subs := makeSubmissions(t, `"A"`, `"A"`, `"A"`)

	task := makeTask(ConsensusStrategy("QUORUM"))
	_, err := engine.Calculate(task, subs, uniformMetrics(subs, 0.8, 0.8, 0.8))
	if err == nil {
		t.Fatal("expected ConsensusError for unknown strategy")
	}
	var ce *ConsensusError
	if !errors.As(err, &ce) {
		t.Fatalf("error type = %T, want *ConsensusError", err)
	}
}

func TestCalculate_LowQualityThresholdForcesReview(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	subs := makeSubmissions(t, `"A"`, `"A"`, `"A"`)
	metrics := uniformMetrics(subs, 0.9, 0.9, 0.9)

	// HIGH confidence, but a quality threshold under the review floor
	// still routes to review. The rule is preserved as specified.
	task := makeTask(StrategyMajority)
	task.Requirements.QualityThreshold = 0.5

	result, err := engine.Calculate(task, subs, metrics)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.ConfidenceLevel != ConfidenceHigh {
		t.Fatalf("ConfidenceLevel = %s, want HIGH", result.ConfidenceLevel)
	}
	if result.Status != StatusNeedsReview {
		t.Errorf("Status = %s, want NEEDS_REVIEW despite HIGH confidence", result.Status)
	}
}

func TestCalculate_SubmissionQualityMetrics(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	subs := makeSubmissions(t, `"A"`, `"A"`, `"B"`)
	subs[2].StartedAt = 500
	subs[2].CompletedAt = 4500

	metrics := uniformMetrics(subs, 0.8, 0.8, 0.8)
	metrics["worker-2"].Consistency = 0.33

	result, err := engine.Calculate(makeTask(StrategyMajority), subs, metrics)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if len(result.WorkerMetrics) != 3 {
		t.Fatalf("WorkerMetrics count = %d, want 3", len(result.WorkerMetrics))
	}

	byWorker := make(map[string]SubmissionQuality)
	for _, q := range result.WorkerMetrics {
		byWorker[q.WorkerID] = q
	}

	if q := byWorker["worker-0"]; q.Accuracy != 1 {
		t.Errorf("agreeing worker accuracy = %v, want 1", q.Accuracy)
	}
	if q := byWorker["worker-2"]; q.Accuracy != 0 {
		t.Errorf("disagreeing worker accuracy = %v, want 0", q.Accuracy)
	}
	if q := byWorker["worker-2"]; q.TimeSpentMs != 4000 {
		t.Errorf("TimeSpentMs = %d, want 4000", q.TimeSpentMs)
	}
	// Consistency is the pre-call snapshot, copied untouched.
	if q := byWorker["worker-2"]; q.ConsistencyScore != 0.33 {
		t.Errorf("ConsistencyScore = %v, want snapshot 0.33", q.ConsistencyScore)
	}
}

func TestConfidenceLevelMapping(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		ratio float64
		want  ConfidenceLevel
	}{
		{1.0, ConfidenceHigh},
		{0.8, ConfidenceHigh},
		{0.79, ConfidenceMedium},
		{0.6, ConfidenceMedium},
		{0.59, ConfidenceLow},
		{0, ConfidenceLow},
	}
	for _, tt := range tests {
		if got := cfg.confidenceLevel(tt.ratio); got != tt.want {
			t.Errorf("confidenceLevel(%v) = %s, want %s", tt.ratio, got, tt.want)
		}
	}
}
