package storage

import (
	"context"
	"sync"
	"time"

	"github.com/eipp/mindburn-aletheia-sub003/internal/quality"
	"github.com/eipp/mindburn-aletheia-sub003/internal/verification"
)

// MemoryStore is an in-process implementation of the metrics and history
// stores with the same blending policy as the SQLite store. Used by tests
// and by deployments that do not need persistence.
type MemoryStore struct {
	mu      sync.RWMutex
	metrics map[string]*verification.WorkerMetrics
	history map[string]*verification.PerformanceHistory
	samples map[string]map[string]int64 // workerID -> taskType -> sample count
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		metrics: make(map[string]*verification.WorkerMetrics),
		history: make(map[string]*verification.PerformanceHistory),
		samples: make(map[string]map[string]int64),
	}
}

// Seed installs a worker profile directly, bypassing blending. Test setup
// helper.
func (s *MemoryStore) Seed(m verification.WorkerMetrics, hist *verification.PerformanceHistory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := m
	s.metrics[m.WorkerID] = &cp
	if hist != nil {
		s.history[m.WorkerID] = hist
	}
}

// Get returns the stored metrics for a worker, or
// verification.ErrWorkerNotFound.
func (s *MemoryStore) Get(ctx context.Context, workerID string) (*verification.WorkerMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metrics[workerID]
	if !ok {
		return nil, verification.ErrWorkerNotFound
	}
	cp := *m
	return &cp, nil
}

// Put applies a metrics delta with the same smoothing policy as the SQLite
// store.
func (s *MemoryStore) Put(ctx context.Context, workerID string, delta verification.MetricsDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spentMs := float64(delta.TimeSpentMs)

	m, ok := s.metrics[workerID]
	if !ok {
		m = &verification.WorkerMetrics{
			WorkerID:        workerID,
			Accuracy:        delta.Accuracy,
			ReputationScore: 0.5,
			AverageTaskTime: spentMs,
		}
		s.metrics[workerID] = m
	} else {
		m.Accuracy = emaAlpha*delta.Accuracy + (1-emaAlpha)*m.Accuracy
		m.ReputationScore = reputationAlpha*delta.Accuracy + (1-reputationAlpha)*m.ReputationScore
		m.AverageTaskTime = emaAlpha*spentMs + (1-emaAlpha)*m.AverageTaskTime
	}
	m.Consistency = delta.Consistency
	m.SpeedScore = delta.SpeedScore
	m.CurrentTaskType = delta.TaskType

	hist, ok := s.history[workerID]
	if !ok {
		hist = &verification.PerformanceHistory{
			WorkerID:         workerID,
			TaskTypeAverages: make(map[string]float64),
		}
		s.history[workerID] = hist
	}
	hist.TotalTasks++
	hist.RecentTasks = append(hist.RecentTasks, verification.TaskRecord{
		Accuracy:    delta.Accuracy,
		DurationMs:  delta.TimeSpentMs,
		TaskType:    delta.TaskType,
		CompletedAt: time.Now().UnixMilli(),
	})
	if len(hist.RecentTasks) > quality.WindowSize {
		hist.RecentTasks = hist.RecentTasks[len(hist.RecentTasks)-quality.WindowSize:]
	}

	if delta.TaskType != "" {
		if hist.TaskTypeAverages == nil {
			hist.TaskTypeAverages = make(map[string]float64)
		}
		counts, ok := s.samples[workerID]
		if !ok {
			counts = make(map[string]int64)
			s.samples[workerID] = counts
		}
		counts[delta.TaskType]++
		n := counts[delta.TaskType]
		avg := hist.TaskTypeAverages[delta.TaskType]
		hist.TaskTypeAverages[delta.TaskType] = avg + (spentMs-avg)/float64(n)
	}

	return nil
}

// History returns the worker's performance history; unknown workers get an
// empty history.
func (s *MemoryStore) History(ctx context.Context, workerID string) (*verification.PerformanceHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hist, ok := s.history[workerID]
	if !ok {
		return &verification.PerformanceHistory{
			WorkerID:         workerID,
			TaskTypeAverages: make(map[string]float64),
		}, nil
	}

	cp := verification.PerformanceHistory{
		WorkerID:         hist.WorkerID,
		TotalTasks:       hist.TotalTasks,
		RecentTasks:      append([]verification.TaskRecord(nil), hist.RecentTasks...),
		TaskTypeAverages: make(map[string]float64, len(hist.TaskTypeAverages)),
	}
	for k, v := range hist.TaskTypeAverages {
		cp.TaskTypeAverages[k] = v
	}
	return &cp, nil
}
