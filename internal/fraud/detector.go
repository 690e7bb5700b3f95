// Package fraud screens submission sets for collusion and automation
// patterns before any consensus is computed: timing outliers, duplicate
// timing pairs, result cliques, submission bursts, and accuracy drift.
package fraud

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/eipp/mindburn-aletheia-sub003/internal/ratelimit"
	"github.com/eipp/mindburn-aletheia-sub003/internal/verification"
)

// Activity types reported by the detector.
const (
	ActivityFastResponse    = "FAST_RESPONSE"
	ActivitySlowResponse    = "SLOW_RESPONSE"
	ActivityDuplicateTiming = "DUPLICATE_TIMING"
	ActivityResultClique    = "RESULT_CLIQUE"
	ActivitySubmissionBurst = "SUBMISSION_BURST"
	ActivityAccuracyDrift   = "ACCURACY_DRIFT"
)

// Severity levels, in increasing order of concern.
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// suspicionWeight maps a severity onto its contribution to a worker's
// suspicion score.
var suspicionWeight = map[string]float64{
	SeverityLow:      0.1,
	SeverityMedium:   0.3,
	SeverityHigh:     0.6,
	SeverityCritical: 1.0,
}

// Detector is a statistical fraud analyzer. It is safe for concurrent use;
// the burst guard carries per-worker state across calls, everything else is
// computed per call.
type Detector struct {
	cfg   Config
	sigma float64
	guard *ratelimit.Guard

	// Optional: when a history store is attached, the detector also flags
	// workers whose rolling accuracy has drifted below the floor.
	history verification.PerformanceHistoryStore
}

// NewDetector creates a detector. history may be nil to disable
// accuracy-drift checks.
func NewDetector(cfg Config, history verification.PerformanceHistoryStore) *Detector {
	return &Detector{
		cfg:     cfg,
		sigma:   sigmaFor(cfg.Sensitivity),
		guard:   ratelimit.NewGuard(cfg.BurstRate, cfg.BurstWindow),
		history: history,
	}
}

// Analyze screens the submission set and returns a fraud report. It never
// mutates its input.
func (d *Detector) Analyze(ctx context.Context, task *verification.VerificationTask, submissions []verification.WorkerSubmission) (*verification.FraudReport, error) {
	var activities []verification.SuspiciousActivity

	activities = append(activities, d.timingOutliers(submissions)...)

	dupPairs := d.duplicateTiming(submissions)
	activities = append(activities, dupPairs...)
	activities = append(activities, d.resultCliques(submissions, dupPairs)...)
	activities = append(activities, d.submissionBursts(submissions)...)
	activities = append(activities, d.accuracyDrift(ctx, submissions)...)

	report := &verification.FraudReport{
		ReportID:               uuid.NewString(),
		RiskLevel:              rollUpRisk(activities),
		SuspiciousActivities:   activities,
		WorkerBehaviorAnalysis: workerBehavior(submissions, activities),
		AnalyzedAt:             time.Now().UnixMilli(),
	}
	return report, nil
}

// timingOutliers flags submissions whose duration sits more than sigma
// standard deviations from the set mean. Too-fast answers point at
// automation and score higher than too-slow ones.
func (d *Detector) timingOutliers(submissions []verification.WorkerSubmission) []verification.SuspiciousActivity {
	if len(submissions) < d.cfg.MinStatSamples {
		return nil
	}

	durations := make([]float64, len(submissions))
	for i, s := range submissions {
		durations[i] = float64(s.CompletedAt - s.StartedAt)
	}
	mean, sd := meanStddev(durations)
	if sd == 0 {
		return nil
	}

	var out []verification.SuspiciousActivity
	for i, s := range submissions {
		dev := durations[i] - mean
		if dev < -d.sigma*sd {
			out = append(out, verification.SuspiciousActivity{
				Type:     ActivityFastResponse,
				WorkerID: s.WorkerID,
				Severity: SeverityMedium,
				Evidence: evidenceTiming(durations[i], mean),
			})
		} else if dev > d.sigma*sd {
			out = append(out, verification.SuspiciousActivity{
				Type:     ActivitySlowResponse,
				WorkerID: s.WorkerID,
				Severity: SeverityLow,
				Evidence: evidenceTiming(durations[i], mean),
			})
		}
	}
	return out
}

// duplicateTiming flags pairs of submissions whose start and completion
// times both match within the configured epsilon. Independent workers do
// not produce near-identical timing.
func (d *Detector) duplicateTiming(submissions []verification.WorkerSubmission) []verification.SuspiciousActivity {
	eps := d.cfg.DuplicateEpsilonMs
	var out []verification.SuspiciousActivity

	for i := 0; i < len(submissions); i++ {
		for j := i + 1; j < len(submissions); j++ {
			a, b := submissions[i], submissions[j]
			if absInt64(a.StartedAt-b.StartedAt) <= eps && absInt64(a.CompletedAt-b.CompletedAt) <= eps {
				out = append(out, verification.SuspiciousActivity{
					Type:     ActivityDuplicateTiming,
					WorkerID: a.WorkerID,
					Severity: SeverityHigh,
					Evidence: "start and completion times match worker " + b.WorkerID + " within epsilon",
				})
				out = append(out, verification.SuspiciousActivity{
					Type:     ActivityDuplicateTiming,
					WorkerID: b.WorkerID,
					Severity: SeverityHigh,
					Evidence: "start and completion times match worker " + a.WorkerID + " within epsilon",
				})
			}
		}
	}
	return out
}

// resultCliques escalates duplicate-timing workers that also submitted
// byte-identical results: matching answers AND matching clocks is the
// strongest collusion signal the detector has.
func (d *Detector) resultCliques(submissions []verification.WorkerSubmission, dupTiming []verification.SuspiciousActivity) []verification.SuspiciousActivity {
	if len(dupTiming) == 0 {
		return nil
	}

	flagged := make(map[string]bool, len(dupTiming))
	for _, a := range dupTiming {
		flagged[a.WorkerID] = true
	}

	byResult := make(map[string][]string) // fingerprint -> flagged workers
	for _, s := range submissions {
		if !flagged[s.WorkerID] {
			continue
		}
		fp, err := verification.Fingerprint(s.Result)
		if err != nil {
			continue
		}
		byResult[fp] = append(byResult[fp], s.WorkerID)
	}

	var out []verification.SuspiciousActivity
	for _, workers := range byResult {
		if len(workers) < 2 {
			continue
		}
		for _, w := range workers {
			out = append(out, verification.SuspiciousActivity{
				Type:     ActivityResultClique,
				WorkerID: w,
				Severity: SeverityCritical,
				Evidence: "identical result and duplicate timing shared with other flagged workers",
			})
		}
	}
	return out
}

// submissionBursts records each submission against the per-worker rate
// guard and flags workers over the burst threshold. Guard state persists
// across Analyze calls.
func (d *Detector) submissionBursts(submissions []verification.WorkerSubmission) []verification.SuspiciousActivity {
	var out []verification.SuspiciousActivity
	for _, s := range submissions {
		if !d.guard.Allow(s.WorkerID) {
			out = append(out, verification.SuspiciousActivity{
				Type:     ActivitySubmissionBurst,
				WorkerID: s.WorkerID,
				Severity: SeverityHigh,
				Evidence: "submission rate over burst threshold for the current window",
			})
		}
	}
	return out
}

// accuracyDrift flags workers whose rolling window accuracy has fallen
// below the floor. History lookups are best-effort: a failed read skips
// the check rather than failing the analysis.
func (d *Detector) accuracyDrift(ctx context.Context, submissions []verification.WorkerSubmission) []verification.SuspiciousActivity {
	if d.history == nil {
		return nil
	}

	var out []verification.SuspiciousActivity
	seen := make(map[string]bool, len(submissions))
	for _, s := range submissions {
		if seen[s.WorkerID] {
			continue
		}
		seen[s.WorkerID] = true

		hist, err := d.history.History(ctx, s.WorkerID)
		if err != nil {
			log.Printf("WARNING: accuracy drift check skipped for worker %s: %v", s.WorkerID, err)
			continue
		}
		accs := hist.RecentAccuracies()
		if len(accs) < d.cfg.MinAccuracySamples {
			continue
		}
		mean, _ := meanStddev(accs)
		if mean < d.cfg.LowAccuracyThreshold {
			out = append(out, verification.SuspiciousActivity{
				Type:     ActivityAccuracyDrift,
				WorkerID: s.WorkerID,
				Severity: SeverityMedium,
				Evidence: "rolling accuracy below floor over the recent window",
			})
		}
	}
	return out
}

// rollUpRisk reduces the flagged activities to a single risk level: any
// critical finding or two high-severity findings mean HIGH; one high or
// two medium findings mean MEDIUM; everything else is LOW.
func rollUpRisk(activities []verification.SuspiciousActivity) verification.RiskLevel {
	var critical, high, medium int
	for _, a := range activities {
		switch a.Severity {
		case SeverityCritical:
			critical++
		case SeverityHigh:
			high++
		case SeverityMedium:
			medium++
		}
	}
	switch {
	case critical > 0 || high >= 2:
		return verification.RiskHigh
	case high == 1 || medium >= 2:
		return verification.RiskMedium
	default:
		return verification.RiskLow
	}
}

// workerBehavior aggregates per-worker suspicion from the flagged
// activities. Every submitting worker gets an entry so downstream layers
// see a complete picture.
func workerBehavior(submissions []verification.WorkerSubmission, activities []verification.SuspiciousActivity) []verification.WorkerBehavior {
	scores := make(map[string]float64)
	flags := make(map[string][]string)
	for _, a := range activities {
		if a.WorkerID == "" {
			continue
		}
		scores[a.WorkerID] += suspicionWeight[a.Severity]
		flags[a.WorkerID] = append(flags[a.WorkerID], a.Type)
	}

	seen := make(map[string]bool, len(submissions))
	out := make([]verification.WorkerBehavior, 0, len(submissions))
	for _, s := range submissions {
		if seen[s.WorkerID] {
			continue
		}
		seen[s.WorkerID] = true

		score := scores[s.WorkerID]
		if score > 1 {
			score = 1
		}
		out = append(out, verification.WorkerBehavior{
			WorkerID:       s.WorkerID,
			SuspicionScore: score,
			Flags:          flags[s.WorkerID],
		})
	}
	return out
}

func meanStddev(vals []float64) (mean, sd float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	n := float64(len(vals))
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean = sum / n

	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}

func evidenceTiming(duration, mean float64) string {
	return "duration " + formatMs(duration) + " deviates from set mean " + formatMs(mean) + " beyond the sigma threshold"
}

func formatMs(ms float64) string {
	return time.Duration(ms * float64(time.Millisecond)).String()
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
