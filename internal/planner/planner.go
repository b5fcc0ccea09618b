// Package planner derives the discrete risk-level ladder of a scaled
// strategy and the order size at each level. All functions are pure over
// the strategy's fields so plans are restartable and testable.
package planner

import (
	"math"

	"cycle-strategy-engine/internal/domain"
)

// DefaultLevelStep is used when a scaled strategy carries no level step.
const DefaultLevelStep = 5.0

// levelEps absorbs float drift when walking the ladder and when bucketing
// a level into its growth index.
const levelEps = 1e-9

// LevelsFor returns the ordered risk levels inside the normalized active
// range. Accumulate ladders descend from the range's high bound, distribute
// ladders ascend from the low bound. A step wider than the range yields a
// single level at the nearer bound.
func LevelsFor(s *domain.Strategy) []float64 {
	minR, maxR := s.Bounds()
	step := s.LevelStep
	if step <= 0 {
		step = DefaultLevelStep
	}

	var levels []float64
	switch s.Mode {
	case domain.ModeDistribute:
		for i := 0; ; i++ {
			level := minR + float64(i)*step
			if level > maxR+levelEps {
				break
			}
			levels = append(levels, level)
		}
		if len(levels) == 0 {
			levels = []float64{minR}
		}
	default: // accumulate
		for i := 0; ; i++ {
			level := maxR - float64(i)*step
			if level < minR-levelEps {
				break
			}
			levels = append(levels, level)
		}
		if len(levels) == 0 {
			levels = []float64{maxR}
		}
	}
	return levels
}

// AmountAtLevel returns the fiat order size at the given risk level.
// Fixed strategies always use the base amount. Scaled strategies grow the
// base amount geometrically with the level's distance from the first level
// of the ladder: amount_i = base * (1 + growthPct/100)^i, rounded.
func AmountAtLevel(s *domain.Strategy, level float64) float64 {
	if s.Kind != domain.KindScaled {
		return s.AmountPerOrder
	}

	minR, maxR := s.Bounds()
	step := s.LevelStep
	if step <= 0 {
		step = DefaultLevelStep
	}

	firstLevel := maxR
	if s.Mode == domain.ModeDistribute {
		firstLevel = minR
	}

	i := math.Floor(math.Abs(level-firstLevel)/step + levelEps)
	growth := 1 + s.LevelGrowthPct/100
	// Half-to-even, so 1562.5 sizes to 1562.
	return math.RoundToEven(s.AmountPerOrder * math.Pow(growth, i))
}

// Plan derives the full level plan from the strategy's current parameters.
func Plan(s *domain.Strategy) []domain.PlannedOrder {
	levels := LevelsFor(s)
	orders := make([]domain.PlannedOrder, len(levels))
	for i, level := range levels {
		orders[i] = domain.PlannedOrder{
			Risk:       level,
			AmountFiat: AmountAtLevel(s, level),
		}
	}
	return orders
}

// ResolveLevels returns the plan used for display and execution matching.
// A frozen ComputedOrders snapshot always wins over recomputation, so a
// saved plan stays stable even if default formulas change; recomputation
// only serves strategies persisted before snapshots existed. The boolean
// reports whether the frozen snapshot was used.
func ResolveLevels(s *domain.Strategy) ([]domain.PlannedOrder, bool) {
	if len(s.ComputedOrders) > 0 {
		orders := make([]domain.PlannedOrder, len(s.ComputedOrders))
		copy(orders, s.ComputedOrders)
		return orders, true
	}
	return Plan(s), false
}

// Freeze recomputes and persists the level plan snapshot on a scaled
// strategy. Fixed strategies carry no plan.
func Freeze(s *domain.Strategy) {
	if s.Kind != domain.KindScaled {
		s.ComputedOrders = nil
		return
	}
	s.ComputedOrders = Plan(s)
}
