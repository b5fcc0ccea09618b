package engine

import (
	"math"
	"sort"
	"time"

	"cycle-strategy-engine/internal/domain"
	"cycle-strategy-engine/internal/planner"
	"cycle-strategy-engine/internal/pricing"
)

// evaluateScaled runs the level-crossing pass for one SCALED strategy.
// Mutates s in place and reports whether anything changed.
//
// Every prior execution claims the plan level nearest to its recorded
// risk, which tolerates fills that did not land exactly on a level. All
// crossed-but-unfilled levels fire in the same tick: a risk jump across
// several levels produces one execution per level, each priced at its own
// level, not at the current risk. Levels fire in ascending order so the
// distribute cap walk stays level-by-level.
func evaluateScaled(s *domain.Strategy, snap domain.RiskSnapshot, now time.Time) bool {
	if s.Kind != domain.KindScaled {
		return false
	}
	if !s.Active || !s.InRange(snap.Score) {
		return false
	}

	plan, _ := planner.ResolveLevels(s)
	if len(plan) == 0 {
		return false
	}

	filled := filledLevels(plan, s.Executions)

	var crossed []domain.PlannedOrder
	for i, po := range plan {
		if filled[i] {
			continue
		}
		switch s.Mode {
		case domain.ModeAccumulate:
			if snap.Score <= po.Risk {
				crossed = append(crossed, po)
			}
		case domain.ModeDistribute:
			if snap.Score >= po.Risk {
				crossed = append(crossed, po)
			}
		}
	}
	if len(crossed) == 0 {
		return false
	}

	sort.Slice(crossed, func(i, j int) bool {
		return crossed[i].Risk < crossed[j].Risk
	})

	sold := s.ExecutedAsset()
	spent := s.ExecutedFiat()
	changed := false

	for _, po := range crossed {
		price := pricing.FromSnapshot(snap, po.Risk)
		var assetAmount float64
		if price > 0 {
			assetAmount = po.AmountFiat / price
		}

		if s.Mode == domain.ModeDistribute && s.AssetCap > 0 && sold+assetAmount > s.AssetCap {
			break
		}
		if s.Mode == domain.ModeAccumulate && s.Capital > 0 && spent+po.AmountFiat > s.Capital {
			break
		}

		s.Executions = append(s.Executions, domain.NewExecution(now, po.Risk, po.AmountFiat, price))
		sold += assetAmount
		spent += po.AmountFiat
		changed = true
	}

	if changed {
		nowMs := now.UnixMilli()
		s.LastExecutionAt = &nowMs
	}
	return changed
}

// filledLevels marks each plan level claimed by at least one prior
// execution. Every execution claims exactly its nearest level.
func filledLevels(plan []domain.PlannedOrder, executions []domain.Execution) []bool {
	filled := make([]bool, len(plan))
	for i := range executions {
		best := -1
		bestDist := math.Inf(1)
		for j, po := range plan {
			d := math.Abs(po.Risk - executions[i].RiskAtExecution)
			if d < bestDist {
				best, bestDist = j, d
			}
		}
		if best >= 0 {
			filled[best] = true
		}
	}
	return filled
}
