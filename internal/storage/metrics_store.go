package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/eipp/mindburn-aletheia-sub003/internal/quality"
	"github.com/eipp/mindburn-aletheia-sub003/internal/verification"
)

// Smoothing factors for blended profile fields. Accuracy and task time use
// an exponential moving average; reputation drifts more slowly so one bad
// round does not erase a long record.
const (
	emaAlpha        = 0.2
	reputationAlpha = 0.1
)

// Get returns the stored metrics for a worker, or
// verification.ErrWorkerNotFound.
func (d *DB) Get(ctx context.Context, workerID string) (*verification.WorkerMetrics, error) {
	row := d.db.QueryRowContext(ctx, `
SELECT accuracy, consistency, speed_score, reputation_score, average_task_time, COALESCE(current_task_type, '')
FROM worker_metrics WHERE worker_id = ?`, workerID)

	m := verification.WorkerMetrics{WorkerID: workerID}
	err := row.Scan(&m.Accuracy, &m.Consistency, &m.SpeedScore, &m.ReputationScore, &m.AverageTaskTime, &m.CurrentTaskType)
	if err == sql.ErrNoRows {
		return nil, verification.ErrWorkerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get worker metrics: %w", err)
	}
	return &m, nil
}

// Put applies an update to a worker's stored profile in one transaction:
// blends accuracy, task time, and reputation, replaces consistency and
// speed, increments the task total, appends to the bounded history window,
// and folds the duration into the task-type average.
func (d *DB) Put(ctx context.Context, workerID string, delta verification.MetricsDelta) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	spentMs := float64(delta.TimeSpentMs)

	var accuracy, reputation, avgTime float64
	err = tx.QueryRowContext(ctx,
		`SELECT accuracy, reputation_score, average_task_time FROM worker_metrics WHERE worker_id = ?`,
		workerID).Scan(&accuracy, &reputation, &avgTime)
	switch {
	case err == sql.ErrNoRows:
		// First update for this worker: seed from the delta with a neutral
		// reputation.
		accuracy = delta.Accuracy
		reputation = 0.5
		avgTime = spentMs
	case err != nil:
		return fmt.Errorf("read current metrics: %w", err)
	default:
		accuracy = emaAlpha*delta.Accuracy + (1-emaAlpha)*accuracy
		reputation = reputationAlpha*delta.Accuracy + (1-reputationAlpha)*reputation
		avgTime = emaAlpha*spentMs + (1-emaAlpha)*avgTime
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO worker_metrics (worker_id, accuracy, consistency, speed_score, reputation_score, average_task_time, current_task_type, total_tasks, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
ON CONFLICT(worker_id) DO UPDATE SET
    accuracy = excluded.accuracy,
    consistency = excluded.consistency,
    speed_score = excluded.speed_score,
    reputation_score = excluded.reputation_score,
    average_task_time = excluded.average_task_time,
    current_task_type = excluded.current_task_type,
    total_tasks = worker_metrics.total_tasks + 1,
    updated_at = excluded.updated_at`,
		workerID, accuracy, delta.Consistency, delta.SpeedScore, reputation, avgTime, delta.TaskType, now)
	if err != nil {
		return fmt.Errorf("upsert worker metrics: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO performance_history (worker_id, accuracy, duration_ms, task_type, completed_at)
VALUES (?, ?, ?, ?, ?)`,
		workerID, delta.Accuracy, delta.TimeSpentMs, delta.TaskType, now)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	// Trim the window: only the most recent entries matter for trend and
	// consistency.
	_, err = tx.ExecContext(ctx, `
DELETE FROM performance_history
WHERE worker_id = ? AND id NOT IN (
    SELECT id FROM performance_history WHERE worker_id = ? ORDER BY id DESC LIMIT ?
)`, workerID, workerID, quality.WindowSize)
	if err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	if delta.TaskType != "" {
		_, err = tx.ExecContext(ctx, `
INSERT INTO task_type_averages (worker_id, task_type, avg_ms, samples)
VALUES (?, ?, ?, 1)
ON CONFLICT(worker_id, task_type) DO UPDATE SET
    samples = task_type_averages.samples + 1,
    avg_ms = task_type_averages.avg_ms + (? - task_type_averages.avg_ms) / (task_type_averages.samples + 1)`,
			workerID, delta.TaskType, spentMs, spentMs)
		if err != nil {
			return fmt.Errorf("update task type average: %w", err)
		}
	}

	return tx.Commit()
}

// History returns the worker's performance history. Unknown workers get an
// empty history, not an error.
func (d *DB) History(ctx context.Context, workerID string) (*verification.PerformanceHistory, error) {
	hist := &verification.PerformanceHistory{
		WorkerID:         workerID,
		TaskTypeAverages: make(map[string]float64),
	}

	err := d.db.QueryRowContext(ctx,
		`SELECT total_tasks FROM worker_metrics WHERE worker_id = ?`, workerID).Scan(&hist.TotalTasks)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("read total tasks: %w", err)
	}

	// Most-recent-last: select descending, then reverse.
	rows, err := d.db.QueryContext(ctx, `
SELECT accuracy, duration_ms, COALESCE(task_type, ''), completed_at
FROM performance_history WHERE worker_id = ? ORDER BY id DESC LIMIT ?`,
		workerID, quality.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r verification.TaskRecord
		if err := rows.Scan(&r.Accuracy, &r.DurationMs, &r.TaskType, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		hist.RecentTasks = append(hist.RecentTasks, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	for i, j := 0, len(hist.RecentTasks)-1; i < j; i, j = i+1, j-1 {
		hist.RecentTasks[i], hist.RecentTasks[j] = hist.RecentTasks[j], hist.RecentTasks[i]
	}

	avgRows, err := d.db.QueryContext(ctx,
		`SELECT task_type, avg_ms FROM task_type_averages WHERE worker_id = ?`, workerID)
	if err != nil {
		return nil, fmt.Errorf("read task type averages: %w", err)
	}
	defer avgRows.Close()

	for avgRows.Next() {
		var taskType string
		var avg float64
		if err := avgRows.Scan(&taskType, &avg); err != nil {
			return nil, fmt.Errorf("scan average row: %w", err)
		}
		hist.TaskTypeAverages[taskType] = avg
	}
	if err := avgRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate averages: %w", err)
	}

	return hist, nil
}

// TopWorkers returns up to limit workers ordered by composite quality
// score, best first. Routing layers use this to pick candidates.
func (d *DB) TopWorkers(ctx context.Context, scorer *quality.Scorer, limit int) ([]verification.WorkerMetrics, error) {
	rows, err := d.db.QueryContext(ctx, `
SELECT worker_id, accuracy, consistency, speed_score, reputation_score, average_task_time, COALESCE(current_task_type, '')
FROM worker_metrics`)
	if err != nil {
		return nil, fmt.Errorf("list worker metrics: %w", err)
	}
	defer rows.Close()

	var all []verification.WorkerMetrics
	for rows.Next() {
		var m verification.WorkerMetrics
		if err := rows.Scan(&m.WorkerID, &m.Accuracy, &m.Consistency, &m.SpeedScore, &m.ReputationScore, &m.AverageTaskTime, &m.CurrentTaskType); err != nil {
			return nil, fmt.Errorf("scan worker metrics: %w", err)
		}
		all = append(all, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate worker metrics: %w", err)
	}

	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		return scorer.Composite(a.Accuracy, a.Consistency, a.SpeedScore, a.ReputationScore) >
			scorer.Composite(b.Accuracy, b.Consistency, b.SpeedScore, b.ReputationScore)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
