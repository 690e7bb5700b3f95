package storage

import (
	"context"
	"fmt"

	"github.com/eipp/mindburn-aletheia-sub003/internal/verification"
)

// ResultRecord is one row of the verification audit log.
type ResultRecord struct {
	ResultID        string  `json:"result_id"`
	TaskID          string  `json:"task_id"`
	Status          string  `json:"status"`
	Strategy        string  `json:"strategy,omitempty"`
	ConfidenceLevel string  `json:"confidence_level"`
	Confidence      float64 `json:"confidence"`
	RiskLevel       string  `json:"risk_level,omitempty"`
	ProcessedAt     int64   `json:"processed_at"`
}

// RecordResult appends an emitted VerificationResult to the audit log.
// Downstream anomaly analysis reads this log; the full result payload is
// not stored, only the decision summary.
func (d *DB) RecordResult(ctx context.Context, result *verification.VerificationResult) error {
	var strategy string
	if s, ok := result.Metadata["strategy"].(string); ok {
		strategy = s
	}
	var confidence float64
	if c, ok := result.Metadata["confidence"].(float64); ok {
		confidence = c
	}
	var risk string
	if result.FraudDetection != nil {
		risk = string(result.FraudDetection.RiskLevel)
	}

	_, err := d.db.ExecContext(ctx, `
INSERT INTO verification_results (result_id, task_id, status, strategy, confidence_level, confidence, risk_level, processed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ResultID, result.TaskID, string(result.Status), strategy, string(result.ConfidenceLevel), confidence, risk, result.ProcessedAt)
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

// RecentResults returns up to limit audit log rows processed at or after
// since (epoch ms), newest first.
func (d *DB) RecentResults(ctx context.Context, since int64, limit int) ([]ResultRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.QueryContext(ctx, `
SELECT result_id, task_id, status, COALESCE(strategy, ''), confidence_level, confidence, COALESCE(risk_level, ''), processed_at
FROM verification_results
WHERE processed_at >= ?
ORDER BY processed_at DESC
LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []ResultRecord
	for rows.Next() {
		var r ResultRecord
		if err := rows.Scan(&r.ResultID, &r.TaskID, &r.Status, &r.Strategy, &r.ConfidenceLevel, &r.Confidence, &r.RiskLevel, &r.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}
