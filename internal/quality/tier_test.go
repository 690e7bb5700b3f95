package quality

import "testing"

func TestLevel_Gates(t *testing.T) {
	s := testScorer()

	tests := []struct {
		name        string
		score       float64
		totalTasks  int64
		consistency float64
		want        Tier
	}{
		{"expert", 0.96, 150, 0.95, TierExpert},
		{"expert boundary", 0.95, 100, 0.9, TierExpert},
		{"high score but too few tasks", 0.99, 10, 0.99, TierBeginner},
		{"expert score without consistency falls to advanced", 0.96, 150, 0.75, TierAdvanced},
		{"advanced", 0.85, 60, 0.8, TierAdvanced},
		{"advanced score but low consistency falls to intermediate", 0.85, 60, 0.5, TierIntermediate},
		{"intermediate", 0.65, 25, 0.1, TierIntermediate},
		{"intermediate score but too few tasks", 0.65, 5, 0.9, TierBeginner},
		{"beginner", 0.4, 200, 0.9, TierBeginner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Level(tt.score, tt.totalTasks, tt.consistency)
			if got != tt.want {
				t.Errorf("Level(%v, %d, %v) = %s, want %s", tt.score, tt.totalTasks, tt.consistency, got, tt.want)
			}
		})
	}
}

func TestLevel_NeverPromotesWithoutTaskCount(t *testing.T) {
	s := testScorer()

	// Sweep scores and consistencies: below 20 tasks the tier must always
	// be BEGINNER, no matter how good the scores look.
	for _, score := range []float64{0.6, 0.8, 0.95, 1.0} {
		for _, consistency := range []float64{0.7, 0.9, 1.0} {
			if got := s.Level(score, 19, consistency); got != TierBeginner {
				t.Errorf("Level(%v, 19, %v) = %s, want BEGINNER", score, consistency, got)
			}
		}
	}
}

func TestTier_AtLeast(t *testing.T) {
	if !TierExpert.AtLeast(TierAdvanced) {
		t.Error("EXPERT should meet an ADVANCED minimum")
	}
	if !TierIntermediate.AtLeast(TierIntermediate) {
		t.Error("a tier should meet itself as minimum")
	}
	if TierBeginner.AtLeast(TierIntermediate) {
		t.Error("BEGINNER should not meet an INTERMEDIATE minimum")
	}
	if !TierBeginner.AtLeast(Tier("UNKNOWN")) {
		t.Error("unknown minimum should rank as BEGINNER")
	}
}

func TestParseTier(t *testing.T) {
	for in, want := range map[string]Tier{
		"expert":       TierExpert,
		"Advanced":     TierAdvanced,
		"INTERMEDIATE": TierIntermediate,
		"beginner":     TierBeginner,
	} {
		got, err := ParseTier(in)
		if err != nil {
			t.Errorf("ParseTier(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseTier(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseTier("wizard"); err == nil {
		t.Error("ParseTier should reject an unknown tier name")
	}
}
