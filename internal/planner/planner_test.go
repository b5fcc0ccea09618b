package planner

import (
	"math"
	"testing"

	"cycle-strategy-engine/internal/domain"
)

func scaledAccumulate(start, end, base, step, growth float64) *domain.Strategy {
	return &domain.Strategy{
		Mode:            domain.ModeAccumulate,
		Kind:            domain.KindScaled,
		ActiveRiskStart: start,
		ActiveRiskEnd:   end,
		AmountPerOrder:  base,
		LevelStep:       step,
		LevelGrowthPct:  growth,
	}
}

func TestLevelsFor_AccumulateDescending(t *testing.T) {
	s := scaledAccumulate(80, 20, 1000, 20, 0)

	got := LevelsFor(s)
	expected := []float64{80, 60, 40, 20}
	if len(got) != len(expected) {
		t.Fatalf("expected %d levels, got %d: %v", len(expected), len(got), got)
	}
	for i := range expected {
		if math.Abs(got[i]-expected[i]) > 1e-9 {
			t.Errorf("level %d: expected %v, got %v", i, expected[i], got[i])
		}
	}
}

func TestLevelsFor_DistributeAscending(t *testing.T) {
	s := &domain.Strategy{
		Mode:            domain.ModeDistribute,
		Kind:            domain.KindScaled,
		ActiveRiskStart: 60,
		ActiveRiskEnd:   90,
		LevelStep:       10,
	}

	got := LevelsFor(s)
	expected := []float64{60, 70, 80, 90}
	if len(got) != len(expected) {
		t.Fatalf("expected %d levels, got %d: %v", len(expected), len(got), got)
	}
	for i := range expected {
		if math.Abs(got[i]-expected[i]) > 1e-9 {
			t.Errorf("level %d: expected %v, got %v", i, expected[i], got[i])
		}
	}
}

func TestLevelsFor_StepWiderThanRange(t *testing.T) {
	// A step wider than the range still yields one level at the entry bound.
	acc := scaledAccumulate(50, 40, 100, 25, 0)
	got := LevelsFor(acc)
	if len(got) != 1 || got[0] != 50 {
		t.Errorf("accumulate: expected [50], got %v", got)
	}

	dist := &domain.Strategy{
		Mode:            domain.ModeDistribute,
		Kind:            domain.KindScaled,
		ActiveRiskStart: 40,
		ActiveRiskEnd:   50,
		LevelStep:       25,
	}
	got = LevelsFor(dist)
	if len(got) != 1 || got[0] != 40 {
		t.Errorf("distribute: expected [40], got %v", got)
	}
}

func TestLevelsFor_DefaultStep(t *testing.T) {
	s := scaledAccumulate(30, 20, 100, 0, 0)

	got := LevelsFor(s)
	expected := []float64{30, 25, 20}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestAmountAtLevel_GeometricSizing(t *testing.T) {
	s := scaledAccumulate(100, 0, 1000, 25, 25)

	tests := []struct {
		level    float64
		expected float64
	}{
		{100, 1000},
		{75, 1250},
		{50, 1562},
		{25, 1953},
		{0, 2441},
	}
	for _, tt := range tests {
		if got := AmountAtLevel(s, tt.level); got != tt.expected {
			t.Errorf("level %v: expected %v, got %v", tt.level, tt.expected, got)
		}
	}
}

func TestAmountAtLevel_FixedAlwaysBase(t *testing.T) {
	s := &domain.Strategy{
		Mode:            domain.ModeAccumulate,
		Kind:            domain.KindFixed,
		ActiveRiskStart: 80,
		ActiveRiskEnd:   0,
		AmountPerOrder:  500,
		LevelGrowthPct:  25,
	}

	for _, level := range []float64{80, 40, 0} {
		if got := AmountAtLevel(s, level); got != 500 {
			t.Errorf("level %v: expected 500, got %v", level, got)
		}
	}
}

func TestAmountAtLevel_DistributeGrowsUpward(t *testing.T) {
	s := &domain.Strategy{
		Mode:            domain.ModeDistribute,
		Kind:            domain.KindScaled,
		ActiveRiskStart: 60,
		ActiveRiskEnd:   90,
		AmountPerOrder:  1000,
		LevelStep:       10,
		LevelGrowthPct:  50,
	}

	tests := []struct {
		level    float64
		expected float64
	}{
		{60, 1000},
		{70, 1500},
		{80, 2250},
		{90, 3375},
	}
	for _, tt := range tests {
		if got := AmountAtLevel(s, tt.level); got != tt.expected {
			t.Errorf("level %v: expected %v, got %v", tt.level, tt.expected, got)
		}
	}
}

func TestResolveLevels_PrefersFrozenPlan(t *testing.T) {
	s := scaledAccumulate(80, 20, 1000, 20, 0)
	s.ComputedOrders = []domain.PlannedOrder{
		{Risk: 77, AmountFiat: 123},
	}

	plan, frozen := ResolveLevels(s)
	if !frozen {
		t.Error("expected frozen plan to be used")
	}
	if len(plan) != 1 || plan[0].Risk != 77 || plan[0].AmountFiat != 123 {
		t.Errorf("unexpected plan: %v", plan)
	}

	// The returned plan is a copy.
	plan[0].Risk = 1
	if s.ComputedOrders[0].Risk != 77 {
		t.Error("ResolveLevels leaked the stored slice")
	}
}

func TestResolveLevels_DerivesWhenNotFrozen(t *testing.T) {
	s := scaledAccumulate(80, 20, 1000, 20, 0)

	plan, frozen := ResolveLevels(s)
	if frozen {
		t.Error("expected derived plan")
	}
	if len(plan) != 4 || plan[0].Risk != 80 {
		t.Errorf("unexpected plan: %v", plan)
	}
}

func TestFreeze(t *testing.T) {
	s := scaledAccumulate(80, 20, 1000, 20, 10)
	Freeze(s)
	if len(s.ComputedOrders) != 4 {
		t.Fatalf("expected 4 planned orders, got %d", len(s.ComputedOrders))
	}

	fixed := &domain.Strategy{Kind: domain.KindFixed, ComputedOrders: s.ComputedOrders}
	Freeze(fixed)
	if fixed.ComputedOrders != nil {
		t.Error("fixed strategy should carry no plan after Freeze")
	}
}
