package engine

import (
	"math"
	"testing"

	"cycle-strategy-engine/internal/domain"
	"cycle-strategy-engine/internal/pricing"
)

func scaledAccumulateStrategy() *domain.Strategy {
	return &domain.Strategy{
		ID:              "scaled-acc",
		AssetID:         "BTC",
		Mode:            domain.ModeAccumulate,
		Kind:            domain.KindScaled,
		ActiveRiskStart: 70,
		ActiveRiskEnd:   40,
		AmountPerOrder:  1000,
		LevelStep:       10,
		Active:          true,
	}
}

func TestEvaluateScaled_MultiLevelCrossing(t *testing.T) {
	// Risk jumps from above the range straight to 40: all four levels
	// fire in one tick, each priced at its own level.
	s := scaledAccumulateStrategy()
	snap := snapshotAt(40)

	if !evaluateScaled(s, snap, testNow) {
		t.Fatal("expected executions")
	}
	if len(s.Executions) != 4 {
		t.Fatalf("expected 4 executions, got %d", len(s.Executions))
	}

	// Ascending level order.
	expectedLevels := []float64{40, 50, 60, 70}
	for i, e := range s.Executions {
		if e.RiskAtExecution != expectedLevels[i] {
			t.Errorf("execution %d: expected level %v, got %v",
				i, expectedLevels[i], e.RiskAtExecution)
		}
		want := pricing.FromSnapshot(snap, expectedLevels[i])
		if math.Abs(e.PricePerUnit-want) > 1e-6 {
			t.Errorf("execution %d: expected level price %v, got %v",
				i, want, e.PricePerUnit)
		}
	}

	// Prices differ per level; nothing was priced at the current risk.
	if s.Executions[0].PricePerUnit == s.Executions[3].PricePerUnit {
		t.Error("executions share one price, expected per-level pricing")
	}
}

func TestEvaluateScaled_FilledLevelsDoNotRefire(t *testing.T) {
	s := scaledAccumulateStrategy()
	snap := snapshotAt(40)

	evaluateScaled(s, snap, testNow)
	if evaluateScaled(s, snap, testNow) {
		t.Error("second tick at the same risk fired again")
	}
	if len(s.Executions) != 4 {
		t.Fatalf("expected 4 executions, got %d", len(s.Executions))
	}
}

func TestEvaluateScaled_NearestLevelMatching(t *testing.T) {
	// A historical fill at 59.7 claims level 60, so only the remaining
	// levels fire.
	s := scaledAccumulateStrategy()
	s.Executions = []domain.Execution{
		{ID: "old", RiskAtExecution: 59.7, AmountFiat: 1000},
		{ID: "old2", RiskAtExecution: 70.2, AmountFiat: 1000},
	}

	if !evaluateScaled(s, snapshotAt(40), testNow) {
		t.Fatal("expected executions")
	}

	var fired []float64
	for _, e := range s.Executions[2:] {
		fired = append(fired, e.RiskAtExecution)
	}
	if len(fired) != 2 || fired[0] != 40 || fired[1] != 50 {
		t.Errorf("expected levels [40 50], got %v", fired)
	}
}

func TestEvaluateScaled_OutOfRangeOrInactive(t *testing.T) {
	s := scaledAccumulateStrategy()
	if evaluateScaled(s, snapshotAt(80), testNow) {
		t.Error("fired outside the active range")
	}

	s.Active = false
	if evaluateScaled(s, snapshotAt(50), testNow) {
		t.Error("fired while switched off")
	}

	s.Active = true
	s.Kind = domain.KindFixed
	if evaluateScaled(s, snapshotAt(50), testNow) {
		t.Error("fixed strategy evaluated by the level pass")
	}
}

func TestEvaluateScaled_DistributeCapWalk(t *testing.T) {
	// Flat anchors make every level price 50000, so each 250 order sells
	// exactly 0.005. A 0.01 cap admits two of the four crossed levels.
	s := &domain.Strategy{
		ID:              "scaled-dist",
		AssetID:         "BTC",
		Mode:            domain.ModeDistribute,
		Kind:            domain.KindScaled,
		ActiveRiskStart: 60,
		ActiveRiskEnd:   90,
		LevelStep:       10,
		AssetCap:        0.01,
		Active:          true,
		ComputedOrders: []domain.PlannedOrder{
			{Risk: 60, AmountFiat: 250},
			{Risk: 70, AmountFiat: 250},
			{Risk: 80, AmountFiat: 250},
			{Risk: 90, AmountFiat: 250},
		},
	}
	snap := domain.RiskSnapshot{
		AssetID:      "BTC",
		Score:        90,
		FloorPrice:   50000,
		CeilingPrice: 50000,
	}

	if !evaluateScaled(s, snap, testNow) {
		t.Fatal("expected executions")
	}
	if len(s.Executions) != 2 {
		t.Fatalf("expected 2 executions before the cap, got %d", len(s.Executions))
	}
	if got := s.ExecutedAsset(); got > 0.01+1e-12 {
		t.Errorf("cap overrun: sold %v", got)
	}

	// The walk stops level-by-level in ascending order.
	if s.Executions[0].RiskAtExecution != 60 || s.Executions[1].RiskAtExecution != 70 {
		t.Errorf("unexpected levels: %v, %v",
			s.Executions[0].RiskAtExecution, s.Executions[1].RiskAtExecution)
	}
}

func TestEvaluateScaled_AccumulateCapitalWalk(t *testing.T) {
	s := scaledAccumulateStrategy()
	s.Capital = 2500

	// Four crossed levels of 1000 each; the walk stops once the next
	// order would overrun the capital.
	if !evaluateScaled(s, snapshotAt(40), testNow) {
		t.Fatal("expected executions")
	}
	if len(s.Executions) != 2 {
		t.Fatalf("expected 2 executions within capital, got %d", len(s.Executions))
	}
	if got := s.ExecutedFiat(); got > 2500 {
		t.Errorf("capital overrun: spent %v", got)
	}
}

func TestEvaluateScaled_FrozenPlanWins(t *testing.T) {
	// The stored plan is used even when parameters would derive a
	// different ladder.
	s := scaledAccumulateStrategy()
	s.ComputedOrders = []domain.PlannedOrder{{Risk: 55, AmountFiat: 777}}

	if !evaluateScaled(s, snapshotAt(41), testNow) {
		t.Fatal("expected execution from the frozen plan")
	}
	if len(s.Executions) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(s.Executions))
	}
	if s.Executions[0].RiskAtExecution != 55 || s.Executions[0].AmountFiat != 777 {
		t.Errorf("unexpected execution: %+v", s.Executions[0])
	}
}
