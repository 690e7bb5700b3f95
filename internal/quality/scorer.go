// Package quality computes worker reliability scores: a composite quality
// score, a consistency measure over a bounded accuracy window, an accuracy
// trend, a relative speed score, and the derived worker tier. Everything is
// pure computation over caller-supplied data; the package does no I/O.
package quality

import "math"

// WindowSize is the maximum number of recent tasks considered for trend
// and consistency.
const WindowSize = 10

// Config holds the scoring coefficients and tier gates. Coefficients of the
// composite score sum to 1 so the output stays in [0,1] for inputs in [0,1].
type Config struct {
	WeightAccuracy    float64 `yaml:"weight_accuracy"`
	WeightConsistency float64 `yaml:"weight_consistency"`
	WeightSpeed       float64 `yaml:"weight_speed"`
	WeightReputation  float64 `yaml:"weight_reputation"`

	// Consistency blend: stddev-derived consistency vs. current accuracy.
	ConsistencyWeight     float64 `yaml:"consistency_weight"`
	CurrentAccuracyWeight float64 `yaml:"current_accuracy_weight"`

	// TrendScale multiplies the least-squares slope before clamping to
	// [-1,1], so small per-task drifts register on the trend scale.
	TrendScale float64 `yaml:"trend_scale"`

	Expert       TierGate `yaml:"expert"`
	Advanced     TierGate `yaml:"advanced"`
	Intermediate TierGate `yaml:"intermediate"`
}

// TierGate is the conjunctive promotion requirement for one tier. All
// non-zero fields must hold simultaneously; a high score alone never
// promotes a low-task-count worker.
type TierGate struct {
	MinScore       float64 `yaml:"min_score"`
	MinTasks       int64   `yaml:"min_tasks"`
	MinConsistency float64 `yaml:"min_consistency"`
}

// DefaultConfig returns the production scoring parameters.
func DefaultConfig() Config {
	return Config{
		WeightAccuracy:        0.4,
		WeightConsistency:     0.3,
		WeightSpeed:           0.2,
		WeightReputation:      0.1,
		ConsistencyWeight:     0.7,
		CurrentAccuracyWeight: 0.3,
		TrendScale:            10,
		Expert:                TierGate{MinScore: 0.95, MinTasks: 100, MinConsistency: 0.9},
		Advanced:              TierGate{MinScore: 0.80, MinTasks: 50, MinConsistency: 0.70},
		Intermediate:          TierGate{MinScore: 0.60, MinTasks: 20},
	}
}

// Scorer evaluates worker quality with a fixed Config.
type Scorer struct {
	cfg Config
}

// NewScorer creates a Scorer.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score is the ephemeral derived view of a worker's quality. It is computed
// on demand and never persisted directly.
type Score struct {
	Overall       float64 `json:"overall"`
	Accuracy      float64 `json:"accuracy"`
	Consistency   float64 `json:"consistency"`
	SpeedScore    float64 `json:"speed_score"`
	AccuracyTrend float64 `json:"accuracy_trend"`
}

// Composite folds the four reliability dimensions into one score in [0,1].
func (s *Scorer) Composite(accuracy, consistency, speed, reputation float64) float64 {
	return accuracy*s.cfg.WeightAccuracy +
		consistency*s.cfg.WeightConsistency +
		speed*s.cfg.WeightSpeed +
		reputation*s.cfg.WeightReputation
}

// Consistency measures how stable a worker's recent accuracies are:
// max(0, 1-stddev) over the last WindowSize entries, blended with the
// current accuracy. A worker with a perfectly flat window scores
// ConsistencyWeight + current*CurrentAccuracyWeight.
func (s *Scorer) Consistency(recentAccuracies []float64, currentAccuracy float64) float64 {
	window := lastN(recentAccuracies, WindowSize)
	if len(window) == 0 {
		return currentAccuracy
	}
	sd := stddev(window)
	consistency := 1 - sd
	if consistency < 0 {
		consistency = 0
	}
	return consistency*s.cfg.ConsistencyWeight + currentAccuracy*s.cfg.CurrentAccuracyWeight
}

// Trend is the ordinary least-squares slope of accuracy over the window
// index, scaled and clamped to [-1,1]. Positive means the worker is
// improving. Fewer than 2 points yield 0.
func (s *Scorer) Trend(recentAccuracies []float64) float64 {
	window := lastN(recentAccuracies, WindowSize)
	n := len(window)
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range window {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (fn*sumXY - sumX*sumY) / denom

	scaled := slope * s.cfg.TrendScale
	if scaled > 1 {
		return 1
	}
	if scaled < -1 {
		return -1
	}
	return scaled
}

// Speed maps a worker's task duration relative to the task-type average
// onto a piecewise score. A non-positive average means no baseline exists
// yet; the worker gets full marks rather than a penalty.
func (s *Scorer) Speed(workerTimeMs, taskTypeAverageMs float64) float64 {
	if taskTypeAverageMs <= 0 {
		return 1.0
	}
	ratio := workerTimeMs / taskTypeAverageMs
	switch {
	case ratio <= 0.8:
		return 1.0
	case ratio <= 1.2:
		return 0.8
	case ratio <= 2.0:
		return 0.5
	default:
		return 0.2
	}
}

// lastN returns the trailing n elements of vals (most-recent-last input).
func lastN(vals []float64, n int) []float64 {
	if len(vals) <= n {
		return vals
	}
	return vals[len(vals)-n:]
}

// stddev is the population standard deviation.
func stddev(vals []float64) float64 {
	n := float64(len(vals))
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / n

	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / n)
}
