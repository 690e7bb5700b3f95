package quality

import (
	"fmt"
	"strings"
)

// Tier classifies a worker for task eligibility gating. It is derived from
// the quality score plus task-count and consistency floors, recomputable at
// any time, and never stored as ground truth.
type Tier string

const (
	TierBeginner     Tier = "BEGINNER"
	TierIntermediate Tier = "INTERMEDIATE"
	TierAdvanced     Tier = "ADVANCED"
	TierExpert       Tier = "EXPERT"
)

// tierRank orders tiers for eligibility comparisons.
var tierRank = map[Tier]int{
	TierBeginner:     0,
	TierIntermediate: 1,
	TierAdvanced:     2,
	TierExpert:       3,
}

// AtLeast reports whether t meets the given minimum tier. Unknown minimums
// rank as BEGINNER.
func (t Tier) AtLeast(min Tier) bool {
	return tierRank[t] >= tierRank[min]
}

// ParseTier maps a case-insensitive tier name to its Tier value.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(s))
	if _, ok := tierRank[t]; !ok {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// Level evaluates the worker tier. Each gate is conjunctive: the score,
// total task count, and (for the top tiers) consistency floor must all hold
// for promotion.
func (s *Scorer) Level(score float64, totalTasks int64, consistency float64) Tier {
	if gateHolds(s.cfg.Expert, score, totalTasks, consistency) {
		return TierExpert
	}
	if gateHolds(s.cfg.Advanced, score, totalTasks, consistency) {
		return TierAdvanced
	}
	if gateHolds(s.cfg.Intermediate, score, totalTasks, consistency) {
		return TierIntermediate
	}
	return TierBeginner
}

func gateHolds(g TierGate, score float64, totalTasks int64, consistency float64) bool {
	return score >= g.MinScore &&
		totalTasks >= g.MinTasks &&
		consistency >= g.MinConsistency
}
