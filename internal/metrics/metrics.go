// Package metrics exposes Prometheus instrumentation for the verification
// core. Metrics are auto-registered via promauto on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counters
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aletheia_verifications_total",
			Help: "Total number of verification calls by terminal status",
		},
		[]string{"status", "strategy"},
	)

	ValidationFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aletheia_validation_failures_total",
			Help: "Total number of verification calls rejected at input validation",
		},
	)

	FraudRiskTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aletheia_fraud_risk_total",
			Help: "Total number of fraud analyses by resulting risk level",
		},
		[]string{"risk_level"},
	)

	MetricsFetchFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aletheia_metrics_fetch_fallbacks_total",
			Help: "Worker metrics fetches that fell back to the neutral profile",
		},
	)

	WritebackFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aletheia_writeback_failures_total",
			Help: "Best-effort worker metrics write-backs that failed",
		},
	)

	// Histograms
	ConsensusConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aletheia_consensus_confidence",
			Help:    "Agreement ratio of computed consensus verdicts",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		},
	)

	VerificationDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aletheia_verification_duration_seconds",
			Help:    "Wall time of verification calls",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
	)
)

// Register initializes all metrics (already done via promauto, but keep for
// explicit initialization at startup).
func Register() {}
