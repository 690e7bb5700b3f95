package quality

import (
	"math"
	"testing"
)

func testScorer() *Scorer {
	return NewScorer(DefaultConfig())
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComposite_Weights(t *testing.T) {
	s := testScorer()

	// 0.9*0.4 + 0.8*0.3 + 0.7*0.2 + 0.6*0.1 = 0.8
	got := s.Composite(0.9, 0.8, 0.7, 0.6)
	if !almostEqual(got, 0.8) {
		t.Errorf("Composite = %v, want 0.8", got)
	}
}

func TestComposite_StaysInUnitRange(t *testing.T) {
	s := testScorer()
	inputs := []float64{0, 0.25, 0.5, 0.75, 1}
	for _, a := range inputs {
		for _, c := range inputs {
			for _, sp := range inputs {
				for _, r := range inputs {
					got := s.Composite(a, c, sp, r)
					if got < 0 || got > 1 {
						t.Fatalf("Composite(%v,%v,%v,%v) = %v, out of [0,1]", a, c, sp, r, got)
					}
				}
			}
		}
	}
}

func TestConsistency_FlatWindowIsMaximal(t *testing.T) {
	s := testScorer()

	// Ten identical accuracies: stddev 0, so 1.0*0.7 + 0.9*0.3 = 0.97.
	window := make([]float64, 10)
	for i := range window {
		window[i] = 0.9
	}
	got := s.Consistency(window, 0.9)
	if !almostEqual(got, 0.97) {
		t.Errorf("Consistency = %v, want 0.97", got)
	}
}

func TestConsistency_EmptyWindowUsesCurrent(t *testing.T) {
	s := testScorer()
	if got := s.Consistency(nil, 0.8); !almostEqual(got, 0.8) {
		t.Errorf("Consistency = %v, want 0.8", got)
	}
}

func TestConsistency_NoisyWindowScoresLower(t *testing.T) {
	s := testScorer()
	flat := s.Consistency([]float64{0.8, 0.8, 0.8, 0.8}, 0.8)
	noisy := s.Consistency([]float64{1, 0, 1, 0}, 0.8)
	if noisy >= flat {
		t.Errorf("noisy window %v should score below flat window %v", noisy, flat)
	}
}

func TestConsistency_UsesOnlyLastTen(t *testing.T) {
	s := testScorer()

	// First five wildly noisy entries are outside the window of the last
	// ten flat ones and must not count.
	vals := []float64{1, 0, 1, 0, 1}
	for i := 0; i < 10; i++ {
		vals = append(vals, 0.9)
	}
	got := s.Consistency(vals, 0.9)
	if !almostEqual(got, 0.97) {
		t.Errorf("Consistency = %v, want 0.97 (window should exclude old entries)", got)
	}
}

func TestTrend(t *testing.T) {
	s := testScorer()

	tests := []struct {
		name string
		vals []float64
		want float64
	}{
		{"too few points", []float64{0.5}, 0},
		{"empty", nil, 0},
		{"flat", []float64{0.8, 0.8, 0.8, 0.8}, 0},
		{"steep improvement clamps to 1", []float64{0, 0.5, 1}, 1},
		{"steep decline clamps to -1", []float64{1, 0.5, 0}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Trend(tt.vals); !almostEqual(got, tt.want) {
				t.Errorf("Trend(%v) = %v, want %v", tt.vals, got, tt.want)
			}
		})
	}
}

func TestTrend_SlightImprovementIsPositiveUnclamped(t *testing.T) {
	s := testScorer()

	// Slope 0.01 per task over 10 tasks: scaled by 10 -> 0.1.
	vals := make([]float64, 10)
	for i := range vals {
		vals[i] = 0.5 + 0.01*float64(i)
	}
	got := s.Trend(vals)
	if !almostEqual(got, 0.1) {
		t.Errorf("Trend = %v, want 0.1", got)
	}
}

func TestSpeed_Piecewise(t *testing.T) {
	s := testScorer()

	tests := []struct {
		workerMs float64
		avgMs    float64
		want     float64
	}{
		{800, 1000, 1.0},  // ratio 0.8
		{500, 1000, 1.0},  // well under
		{1000, 1000, 0.8}, // ratio 1.0
		{1200, 1000, 0.8}, // ratio 1.2 boundary
		{1500, 1000, 0.5}, // ratio 1.5
		{2000, 1000, 0.5}, // ratio 2.0 boundary
		{2001, 1000, 0.2}, // over 2.0
		{5000, 0, 1.0},    // no baseline yet
	}
	for _, tt := range tests {
		if got := s.Speed(tt.workerMs, tt.avgMs); !almostEqual(got, tt.want) {
			t.Errorf("Speed(%v, %v) = %v, want %v", tt.workerMs, tt.avgMs, got, tt.want)
		}
	}
}
