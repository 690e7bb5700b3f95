package verification

import (
	"context"
	"encoding/json"
	"time"
)

// ConsensusStrategy selects how disagreeing submissions are reconciled.
type ConsensusStrategy string

const (
	StrategyMajority  ConsensusStrategy = "MAJORITY"
	StrategyWeighted  ConsensusStrategy = "WEIGHTED"
	StrategyUnanimous ConsensusStrategy = "UNANIMOUS"
)

// Status is the terminal outcome of a verification call.
type Status string

const (
	StatusCompleted   Status = "COMPLETED"
	StatusFailed      Status = "FAILED"
	StatusNeedsReview Status = "NEEDS_REVIEW"
)

// ConfidenceLevel is the categorical summary of agreement strength.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "HIGH"
	ConfidenceMedium ConfidenceLevel = "MEDIUM"
	ConfidenceLow    ConfidenceLevel = "LOW"
)

// RiskLevel is the fraud analyzer's categorical assessment of a submission set.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// TaskRequirements constrains what counts as an acceptable verification.
// TimeLimitSeconds of 0 means no per-submission time limit.
type TaskRequirements struct {
	MinSubmissions   int     `json:"min_submissions" validate:"gte=1"`
	QualityThreshold float64 `json:"quality_threshold" validate:"gte=0,lte=1"`
	TimeLimitSeconds int     `json:"time_limit_seconds,omitempty" validate:"gte=0"`
	MinWorkerLevel   string  `json:"min_worker_level,omitempty" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT"`
}

// VerificationTask describes one piece of content to be verified by
// multiple independent workers. Worker eligibility (MinWorkerLevel) is
// enforced at assignment time by the routing layer, not here.
type VerificationTask struct {
	TaskID            string            `json:"task_id" validate:"required"`
	ContentType       string            `json:"content_type" validate:"required"`
	ConsensusStrategy ConsensusStrategy `json:"consensus_strategy" validate:"required,oneof=MAJORITY WEIGHTED UNANIMOUS"`
	Requirements      TaskRequirements  `json:"requirements"`
}

// WorkerSubmission is one worker's answer for a task. Result is an opaque
// JSON payload; submissions are compared by canonical fingerprint, never by
// raw bytes. Timestamps are epoch milliseconds.
type WorkerSubmission struct {
	SubmissionID string          `json:"submission_id"`
	WorkerID     string          `json:"worker_id"`
	TaskID       string          `json:"task_id"`
	Result       json.RawMessage `json:"result"`
	StartedAt    int64           `json:"started_at"`
	CompletedAt  int64           `json:"completed_at"`
}

// Duration returns the wall time the worker spent on the submission.
func (s WorkerSubmission) Duration() time.Duration {
	return time.Duration(s.CompletedAt-s.StartedAt) * time.Millisecond
}

// WorkerMetrics is a worker's long-run reliability profile. All score fields
// are in [0,1]. AverageTaskTime is in milliseconds.
type WorkerMetrics struct {
	WorkerID        string  `json:"worker_id"`
	Accuracy        float64 `json:"accuracy"`
	Consistency     float64 `json:"consistency"`
	SpeedScore      float64 `json:"speed_score"`
	ReputationScore float64 `json:"reputation_score"`
	AverageTaskTime float64 `json:"average_task_time"`
	CurrentTaskType string  `json:"current_task_type,omitempty"`
}

// TaskRecord is one completed task in a worker's recent history window.
type TaskRecord struct {
	Accuracy    float64 `json:"accuracy"`
	DurationMs  int64   `json:"duration_ms"`
	TaskType    string  `json:"task_type"`
	CompletedAt int64   `json:"completed_at"`
}

// PerformanceHistory is a worker's task history: a monotonic total, a
// bounded most-recent-last window used for trend and consistency, and
// per-task-type average durations in milliseconds.
type PerformanceHistory struct {
	WorkerID         string             `json:"worker_id"`
	TotalTasks       int64              `json:"total_tasks"`
	RecentTasks      []TaskRecord       `json:"recent_tasks"`
	TaskTypeAverages map[string]float64 `json:"task_type_averages"`
}

// RecentAccuracies returns the accuracies of the recent window,
// most-recent-last.
func (h *PerformanceHistory) RecentAccuracies() []float64 {
	out := make([]float64, len(h.RecentTasks))
	for i, r := range h.RecentTasks {
		out[i] = r.Accuracy
	}
	return out
}

// SubmissionQuality is the per-submission quality delta produced by a
// consensus round: binary agreement with the verdict, time spent, and the
// worker's consistency snapshot from before the call.
type SubmissionQuality struct {
	SubmissionID     string  `json:"submission_id"`
	WorkerID         string  `json:"worker_id"`
	Accuracy         float64 `json:"accuracy"`
	TimeSpentMs      int64   `json:"time_spent_ms"`
	ConsistencyScore float64 `json:"consistency_score"`
}

// SuspiciousActivity is a single flagged pattern in a submission set.
type SuspiciousActivity struct {
	Type     string `json:"type"`
	WorkerID string `json:"worker_id,omitempty"`
	Severity string `json:"severity"`
	Evidence string `json:"evidence"`
}

// WorkerBehavior summarizes one worker's behavior within an analyzed set.
type WorkerBehavior struct {
	WorkerID       string   `json:"worker_id"`
	SuspicionScore float64  `json:"suspicion_score"`
	Flags          []string `json:"flags,omitempty"`
}

// FraudReport is the fraud analyzer's verdict on a submission set.
type FraudReport struct {
	ReportID               string               `json:"report_id"`
	RiskLevel              RiskLevel            `json:"risk_level"`
	SuspiciousActivities   []SuspiciousActivity `json:"suspicious_activities,omitempty"`
	WorkerBehaviorAnalysis []WorkerBehavior     `json:"worker_behavior_analysis,omitempty"`
	AnalyzedAt             int64                `json:"analyzed_at"`
}

// VerificationResult is the single output of a verification call.
// Consensus is nil when no verdict could be derived. Metadata carries
// machine-readable annotations (insufficient_submissions, failure_reason,
// strategy, confidence ratio).
type VerificationResult struct {
	ResultID        string              `json:"result_id"`
	TaskID          string              `json:"task_id"`
	Status          Status              `json:"status"`
	Consensus       json.RawMessage     `json:"consensus,omitempty"`
	ConfidenceLevel ConfidenceLevel     `json:"confidence_level"`
	WorkerMetrics   []SubmissionQuality `json:"worker_metrics,omitempty"`
	FraudDetection  *FraudReport        `json:"fraud_detection,omitempty"`
	ProcessedAt     int64               `json:"processed_at"`
	Metadata        map[string]any      `json:"metadata,omitempty"`
}

// MetricsDelta is the update pushed to a worker's stored metrics after a
// consensus round. Consistency and SpeedScore replace the stored values;
// Accuracy is blended into the stored profile by the store's smoothing
// policy. TaskType feeds the per-type duration averages.
type MetricsDelta struct {
	Accuracy    float64 `json:"accuracy"`
	Consistency float64 `json:"consistency"`
	SpeedScore  float64 `json:"speed_score"`
	TimeSpentMs int64   `json:"time_spent_ms"`
	TaskType    string  `json:"task_type"`
}

// WorkerMetricsStore is the persistence boundary for worker reliability
// profiles. Get returns ErrWorkerNotFound for unknown workers.
type WorkerMetricsStore interface {
	Get(ctx context.Context, workerID string) (*WorkerMetrics, error)
	Put(ctx context.Context, workerID string, delta MetricsDelta) error
}

// PerformanceHistoryStore serves per-worker task history. Unknown workers
// get an empty history, not an error.
type PerformanceHistoryStore interface {
	History(ctx context.Context, workerID string) (*PerformanceHistory, error)
}

// FraudAnalyzer assesses a full submission set for collusion and fraud
// before any consensus is computed.
type FraudAnalyzer interface {
	Analyze(ctx context.Context, task *VerificationTask, submissions []WorkerSubmission) (*FraudReport, error)
}
