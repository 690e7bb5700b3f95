package fraud

import "time"

// Sensitivity selects how aggressively the detector flags outliers.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// sigmaFor maps sensitivity onto the standard-deviation multiplier used
// for timing outliers. Higher sensitivity means a tighter threshold.
func sigmaFor(s Sensitivity) float64 {
	switch s {
	case SensitivityLow:
		return 3.0
	case SensitivityHigh:
		return 2.0
	default:
		return 2.5
	}
}

// Config holds the detector's tunables.
type Config struct {
	Sensitivity Sensitivity `yaml:"sensitivity"`

	// Two submissions whose start AND completion times both fall within
	// this epsilon are treated as duplicate timing (collusion signal).
	DuplicateEpsilonMs int64 `yaml:"duplicate_epsilon_ms"`

	// Burst detection: more than BurstRate submissions from one worker
	// within BurstWindow is flagged.
	BurstRate   int           `yaml:"burst_rate"`
	BurstWindow time.Duration `yaml:"burst_window"`

	// MinStatSamples is the minimum submission count before timing
	// statistics are considered meaningful.
	MinStatSamples int `yaml:"min_stat_samples"`

	// Accuracy drift: a worker whose rolling window mean accuracy falls
	// below LowAccuracyThreshold with at least MinAccuracySamples entries
	// is flagged.
	LowAccuracyThreshold float64 `yaml:"low_accuracy_threshold"`
	MinAccuracySamples   int     `yaml:"min_accuracy_samples"`
}

// DefaultConfig returns the production detector parameters.
func DefaultConfig() Config {
	return Config{
		Sensitivity:          SensitivityMedium,
		DuplicateEpsilonMs:   250,
		BurstRate:            30,
		BurstWindow:          time.Hour,
		MinStatSamples:       3,
		LowAccuracyThreshold: 0.7,
		MinAccuracySamples:   10,
	}
}
