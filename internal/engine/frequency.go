package engine

import (
	"time"

	"cycle-strategy-engine/internal/domain"
	"cycle-strategy-engine/internal/pricing"
)

// evaluateFixed runs the frequency pass for one FIXED strategy against the
// current risk snapshot. Mutates s in place and reports whether anything
// changed.
//
// Rules:
//   - out of range or switched off: clear any pending schedule ("pause on
//     range exit") and do nothing else.
//   - in range: a never-scheduled strategy is immediately due; otherwise
//     fire only once NextExecutionAt has passed.
//   - a due distribute order that would overrun the remaining asset cap is
//     skipped without rescheduling, so it is retried on the next tick at
//     whatever price that tick sees. Accumulate orders are held back the
//     same way when remaining capital cannot cover them.
func evaluateFixed(s *domain.Strategy, snap domain.RiskSnapshot, now time.Time) bool {
	if s.Kind != domain.KindFixed {
		return false
	}

	if !s.Active || !s.InRange(snap.Score) {
		if s.NextExecutionAt != nil {
			s.NextExecutionAt = nil
			return true
		}
		return false
	}

	nowMs := now.UnixMilli()
	dueAt := nowMs
	if s.NextExecutionAt != nil {
		dueAt = *s.NextExecutionAt
	}
	if nowMs < dueAt {
		return false
	}

	price := pricing.FromSnapshot(snap, snap.Score)

	switch s.Mode {
	case domain.ModeDistribute:
		if s.AssetCap > 0 {
			if price <= 0 {
				// Cannot size the order without a price; retry next tick.
				return false
			}
			needed := s.AmountPerOrder / price
			if s.AssetCap-s.ExecutedAsset() < needed {
				return false
			}
		}
	case domain.ModeAccumulate:
		if s.Capital > 0 && s.Capital-s.ExecutedFiat() < s.AmountPerOrder {
			return false
		}
	}

	s.Executions = append(s.Executions, domain.NewExecution(now, snap.Score, s.AmountPerOrder, price))
	s.LastExecutionAt = &nowMs
	next := nowMs + s.Frequency.IntervalMs()
	s.NextExecutionAt = &next
	return true
}
