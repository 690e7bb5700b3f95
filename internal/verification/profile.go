package verification

import (
	"context"
	"fmt"

	"github.com/eipp/mindburn-aletheia-sub003/internal/quality"
)

// WorkerProfile is the on-demand view of one worker: stored metrics, the
// derived quality score, and the recomputed tier. The tier is a cache of a
// derivable value and is never persisted as ground truth.
type WorkerProfile struct {
	Metrics WorkerMetrics `json:"metrics"`
	Score   quality.Score `json:"score"`
	Tier    quality.Tier  `json:"tier"`
	Total   int64         `json:"total_tasks"`
}

// WorkerProfile assembles the derived view for a worker. Unlike the
// verification path, an unknown worker here is an error: there is nothing
// meaningful to score.
func (o *Orchestrator) WorkerProfile(ctx context.Context, workerID string) (*WorkerProfile, error) {
	m, err := o.store.Get(ctx, workerID)
	if err != nil {
		return nil, fmt.Errorf("fetch metrics for worker %s: %w", workerID, err)
	}

	hist, err := o.history.History(ctx, workerID)
	if err != nil {
		return nil, &QualityError{WorkerID: workerID, Err: err}
	}

	accs := hist.RecentAccuracies()
	score := quality.Score{
		Overall:       o.scorer.Composite(m.Accuracy, m.Consistency, m.SpeedScore, m.ReputationScore),
		Accuracy:      m.Accuracy,
		Consistency:   m.Consistency,
		SpeedScore:    m.SpeedScore,
		AccuracyTrend: o.scorer.Trend(accs),
	}

	return &WorkerProfile{
		Metrics: *m,
		Score:   score,
		Tier:    o.scorer.Level(score.Overall, hist.TotalTasks, m.Consistency),
		Total:   hist.TotalTasks,
	}, nil
}
