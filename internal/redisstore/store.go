// Package redisstore implements the worker metrics and history stores on
// Redis, for deployments where live worker reliability data is shared
// across processes. Layout per worker:
//
//   - metrics:<id>          hash with the profile fields
//   - history:<id>          list of JSON task records, bounded window
//   - task_avg:<id>         hash of task type -> average duration ms
//   - task_avg_samples:<id> hash of task type -> sample count
//   - workers:quality       zset ranking workers by composite score
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eipp/mindburn-aletheia-sub003/internal/quality"
	"github.com/eipp/mindburn-aletheia-sub003/internal/verification"
)

// Smoothing factors, matching the SQLite store's blending policy.
const (
	emaAlpha        = 0.2
	reputationAlpha = 0.1
)

const rankingKey = "workers:quality"

// Store implements verification.WorkerMetricsStore and
// verification.PerformanceHistoryStore on a Redis client.
type Store struct {
	rdb    *redis.Client
	scorer *quality.Scorer
}

// NewStore creates a Store. The scorer feeds the workers:quality ranking.
func NewStore(rdb *redis.Client, scorer *quality.Scorer) *Store {
	return &Store{rdb: rdb, scorer: scorer}
}

func metricsKey(workerID string) string { return "metrics:" + workerID }

func historyKey(workerID string) string { return "history:" + workerID }

func taskAvgKey(workerID string) string { return "task_avg:" + workerID }

func avgSamplesKey(workerID string) string { return "task_avg_samples:" + workerID }

// Get returns the stored metrics for a worker, or
// verification.ErrWorkerNotFound.
func (s *Store) Get(ctx context.Context, workerID string) (*verification.WorkerMetrics, error) {
	data, err := s.rdb.HGetAll(ctx, metricsKey(workerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get metrics: %w", err)
	}
	if len(data) == 0 {
		return nil, verification.ErrWorkerNotFound
	}
	return parseMetrics(workerID, data), nil
}

// parseMetrics decodes a metrics hash. Unparsable fields read as zero,
// matching how partially written hashes degrade.
func parseMetrics(workerID string, data map[string]string) *verification.WorkerMetrics {
	f := func(field string) float64 {
		v, _ := strconv.ParseFloat(data[field], 64)
		return v
	}
	return &verification.WorkerMetrics{
		WorkerID:        workerID,
		Accuracy:        f("accuracy"),
		Consistency:     f("consistency"),
		SpeedScore:      f("speed_score"),
		ReputationScore: f("reputation_score"),
		AverageTaskTime: f("average_task_time"),
		CurrentTaskType: data["current_task_type"],
	}
}

// Put applies a metrics delta: blends accuracy, reputation, and task time,
// replaces consistency and speed, appends to the bounded history window,
// updates the task-type average, and refreshes the quality ranking. Writes
// go through one pipeline.
func (s *Store) Put(ctx context.Context, workerID string, delta verification.MetricsDelta) error {
	key := metricsKey(workerID)
	spentMs := float64(delta.TimeSpentMs)

	accuracy := delta.Accuracy
	reputation := 0.5
	avgTime := spentMs

	current, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("read current metrics: %w", err)
	}
	if len(current) > 0 {
		m := parseMetrics(workerID, current)
		accuracy = emaAlpha*delta.Accuracy + (1-emaAlpha)*m.Accuracy
		reputation = reputationAlpha*delta.Accuracy + (1-reputationAlpha)*m.ReputationScore
		avgTime = emaAlpha*spentMs + (1-emaAlpha)*m.AverageTaskTime
	}

	record, err := json.Marshal(verification.TaskRecord{
		Accuracy:    delta.Accuracy,
		DurationMs:  delta.TimeSpentMs,
		TaskType:    delta.TaskType,
		CompletedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal history record: %w", err)
	}

	newAvg := spentMs
	if delta.TaskType != "" {
		samples, _ := s.rdb.HGet(ctx, avgSamplesKey(workerID), delta.TaskType).Int64()
		if samples > 0 {
			oldAvg, _ := s.rdb.HGet(ctx, taskAvgKey(workerID), delta.TaskType).Float64()
			newAvg = oldAvg + (spentMs-oldAvg)/float64(samples+1)
		}
	}

	composite := s.scorer.Composite(accuracy, delta.Consistency, delta.SpeedScore, reputation)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"accuracy", fmt.Sprintf("%.6f", accuracy),
		"consistency", fmt.Sprintf("%.6f", delta.Consistency),
		"speed_score", fmt.Sprintf("%.6f", delta.SpeedScore),
		"reputation_score", fmt.Sprintf("%.6f", reputation),
		"average_task_time", fmt.Sprintf("%.2f", avgTime),
		"current_task_type", delta.TaskType,
		"updated_at", time.Now().Unix(),
	)
	pipe.HIncrBy(ctx, key, "total_tasks", 1)

	pipe.RPush(ctx, historyKey(workerID), record)
	pipe.LTrim(ctx, historyKey(workerID), int64(-quality.WindowSize), -1)

	if delta.TaskType != "" {
		pipe.HSet(ctx, taskAvgKey(workerID), delta.TaskType, fmt.Sprintf("%.2f", newAvg))
		pipe.HIncrBy(ctx, avgSamplesKey(workerID), delta.TaskType, 1)
	}

	pipe.ZAdd(ctx, rankingKey, redis.Z{Score: composite, Member: workerID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update metrics: %w", err)
	}
	return nil
}

// History returns the worker's performance history. Unknown workers get an
// empty history.
func (s *Store) History(ctx context.Context, workerID string) (*verification.PerformanceHistory, error) {
	hist := &verification.PerformanceHistory{
		WorkerID:         workerID,
		TaskTypeAverages: make(map[string]float64),
	}

	total, err := s.rdb.HGet(ctx, metricsKey(workerID), "total_tasks").Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("read total tasks: %w", err)
	}
	hist.TotalTasks = total

	raw, err := s.rdb.LRange(ctx, historyKey(workerID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	for _, item := range raw {
		var r verification.TaskRecord
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("unmarshal history record: %w", err)
		}
		hist.RecentTasks = append(hist.RecentTasks, r)
	}

	avgs, err := s.rdb.HGetAll(ctx, taskAvgKey(workerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read task type averages: %w", err)
	}
	for taskType, v := range avgs {
		avg, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		hist.TaskTypeAverages[taskType] = avg
	}

	return hist, nil
}

// TopWorkers returns up to limit workers from the quality ranking, best
// first.
func (s *Store) TopWorkers(ctx context.Context, limit int64) ([]verification.WorkerMetrics, error) {
	if limit <= 0 {
		limit = 10
	}
	ids, err := s.rdb.ZRevRange(ctx, rankingKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read quality ranking: %w", err)
	}

	out := make([]verification.WorkerMetrics, 0, len(ids))
	for _, id := range ids {
		m, err := s.Get(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}
