package verification

// Config holds every tunable of the consensus engine and orchestrator.
// All thresholds live here rather than as package constants so deployments
// can tune them and tests can pin them.
type Config struct {
	// Confidence ratio cutoffs: ratio >= High -> HIGH, >= Medium -> MEDIUM,
	// else LOW.
	ConfidenceHigh   float64 `yaml:"confidence_high"`
	ConfidenceMedium float64 `yaml:"confidence_medium"`

	// Per-worker weight coefficients for the WEIGHTED strategy.
	WeightAccuracy    float64 `yaml:"weight_accuracy"`
	WeightConsistency float64 `yaml:"weight_consistency"`
	WeightReputation  float64 `yaml:"weight_reputation"`

	// Status determination thresholds applied to the task's quality
	// threshold. CompleteQuality pairs with HIGH confidence to mark a task
	// COMPLETED; a task quality threshold below ReviewQuality forces
	// NEEDS_REVIEW regardless of confidence.
	CompleteQuality float64 `yaml:"complete_quality"`
	ReviewQuality   float64 `yaml:"review_quality"`

	// Neutral profile substituted when a worker's metrics cannot be
	// fetched.
	NeutralScore float64 `yaml:"neutral_score"`

	// MaxFetchConcurrency bounds the fan-out used for metrics fetch and
	// write-back. Zero means one goroutine per distinct worker.
	MaxFetchConcurrency int `yaml:"max_fetch_concurrency"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ConfidenceHigh:      0.8,
		ConfidenceMedium:    0.6,
		WeightAccuracy:      0.4,
		WeightConsistency:   0.3,
		WeightReputation:    0.3,
		CompleteQuality:     0.8,
		ReviewQuality:       0.6,
		NeutralScore:        0.5,
		MaxFetchConcurrency: 8,
	}
}

// confidenceLevel maps an agreement ratio onto the categorical level.
func (c Config) confidenceLevel(ratio float64) ConfidenceLevel {
	switch {
	case ratio >= c.ConfidenceHigh:
		return ConfidenceHigh
	case ratio >= c.ConfidenceMedium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// neutralMetrics is the profile substituted for workers whose metrics fetch
// failed: no influence bias in either direction.
func (c Config) neutralMetrics(workerID string) *WorkerMetrics {
	return &WorkerMetrics{
		WorkerID:        workerID,
		Accuracy:        c.NeutralScore,
		Consistency:     c.NeutralScore,
		SpeedScore:      c.NeutralScore,
		ReputationScore: c.NeutralScore,
	}
}
