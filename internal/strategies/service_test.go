package strategies

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"

	"cycle-strategy-engine/internal/domain"
	"cycle-strategy-engine/internal/storage/memory"
)

func newTestService() *Service {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewService(memory.NewStrategyStore(), logger)
}

func validFixedParams() Params {
	return Params{
		AssetID:         "BTC",
		Mode:            domain.ModeAccumulate,
		Kind:            domain.KindFixed,
		ActiveRiskStart: 80,
		ActiveRiskEnd:   20,
		AmountPerOrder:  100,
		Frequency:       domain.FrequencyWeekly,
		Active:          true,
	}
}

func validScaledParams() Params {
	return Params{
		AssetID:         "BTC",
		Mode:            domain.ModeAccumulate,
		Kind:            domain.KindScaled,
		ActiveRiskStart: 80,
		ActiveRiskEnd:   20,
		AmountPerOrder:  1000,
		LevelStep:       20,
		LevelGrowthPct:  25,
		Active:          true,
	}
}

func TestCreate_Fixed(t *testing.T) {
	svc := newTestService()

	s, err := svc.Create(context.Background(), validFixedParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.ID == "" {
		t.Error("expected generated ID")
	}
	if s.CreatedAt == 0 {
		t.Error("expected CreatedAt set")
	}
	if s.ActivatedAt == nil {
		t.Error("expected ActivatedAt set for active strategy")
	}
	if s.NextExecutionAt != nil {
		t.Error("creation must never schedule an execution")
	}
	if s.ComputedOrders != nil {
		t.Error("fixed strategy must not carry a level plan")
	}

	all, _ := svc.store.LoadAll(context.Background())
	if len(all) != 1 {
		t.Fatalf("expected 1 persisted strategy, got %d", len(all))
	}
}

func TestCreate_ScaledFreezesPlan(t *testing.T) {
	svc := newTestService()

	s, err := svc.Create(context.Background(), validScaledParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(s.ComputedOrders) != 4 {
		t.Fatalf("expected 4 planned orders, got %d", len(s.ComputedOrders))
	}
	if s.ComputedOrders[0].Risk != 80 || s.ComputedOrders[0].AmountFiat != 1000 {
		t.Errorf("unexpected first planned order: %+v", s.ComputedOrders[0])
	}
	if s.ComputedOrders[3].Risk != 20 {
		t.Errorf("unexpected last level: %v", s.ComputedOrders[3].Risk)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr error
	}{
		{"unknown mode", func(p *Params) { p.Mode = "SIDEWAYS" }, ErrUnknownMode},
		{"unknown kind", func(p *Params) { p.Kind = "RANDOM" }, ErrUnknownKind},
		{"range out of bounds", func(p *Params) { p.ActiveRiskStart = 120 }, ErrRangeOutOfBounds},
		{"negative bound", func(p *Params) { p.ActiveRiskEnd = -1 }, ErrRangeOutOfBounds},
		{"accumulate start<=end", func(p *Params) { p.ActiveRiskStart, p.ActiveRiskEnd = 20, 80 }, ErrInvalidAccumulate},
		{"zero amount", func(p *Params) { p.AmountPerOrder = 0 }, ErrAmountNotPositive},
		{"bad frequency", func(p *Params) { p.Frequency = "HOURLY" }, ErrInvalidFrequency},
		{"negative step", func(p *Params) { p.Kind = domain.KindScaled; p.LevelStep = -1 }, ErrNegativeLevelStep},
		{"negative growth", func(p *Params) { p.Kind = domain.KindScaled; p.LevelGrowthPct = -5 }, ErrNegativeGrowth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validFixedParams()
			tt.mutate(&p)
			if _, err := svc.Create(context.Background(), p); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreate_DistributeRangeDirection(t *testing.T) {
	svc := newTestService()

	p := validFixedParams()
	p.Mode = domain.ModeDistribute
	// Distribute keeps start < end; the accumulate-shaped range fails.
	if _, err := svc.Create(context.Background(), p); !errors.Is(err, ErrInvalidDistribute) {
		t.Fatalf("expected ErrInvalidDistribute, got %v", err)
	}

	p.ActiveRiskStart, p.ActiveRiskEnd = 60, 90
	if _, err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("valid distribute rejected: %v", err)
	}
}

func TestUpdate_PreservesIdentityAndHistory(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, validScaledParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Simulate engine history directly in the store.
	all, _ := svc.store.LoadAll(ctx)
	all[0].Executions = []domain.Execution{{ID: "e1", RiskAtExecution: 60, AmountFiat: 1000}}
	if err := svc.store.SaveAll(ctx, all); err != nil {
		t.Fatalf("seed executions: %v", err)
	}

	p := validScaledParams()
	p.AmountPerOrder = 2000
	p.LevelStep = 30

	updated, err := svc.Update(ctx, created.ID, p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.CreatedAt != created.CreatedAt {
		t.Error("identity fields changed on update")
	}
	if len(updated.Executions) != 1 {
		t.Fatalf("execution history lost: %d", len(updated.Executions))
	}
	if updated.AmountPerOrder != 2000 {
		t.Errorf("amount not updated: %v", updated.AmountPerOrder)
	}

	// The plan was re-frozen from the new parameters.
	if len(updated.ComputedOrders) != 3 {
		t.Fatalf("expected re-frozen 3-level plan, got %d", len(updated.ComputedOrders))
	}
	if updated.ComputedOrders[0].AmountFiat != 2000 {
		t.Errorf("plan not re-frozen: %+v", updated.ComputedOrders[0])
	}
}

func TestUpdate_LoweredCapDeactivates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p := Params{
		AssetID:         "BTC",
		Mode:            domain.ModeDistribute,
		Kind:            domain.KindScaled,
		ActiveRiskStart: 60,
		ActiveRiskEnd:   90,
		AmountPerOrder:  1000,
		LevelStep:       10,
		AssetCap:        1.0,
		Active:          true,
	}
	created, err := svc.Create(ctx, p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	all, _ := svc.store.LoadAll(ctx)
	all[0].Executions = []domain.Execution{{ID: "e1", AssetAmount: 0.6}}
	if err := svc.store.SaveAll(ctx, all); err != nil {
		t.Fatalf("seed executions: %v", err)
	}

	// Lowering the cap below what was already sold deactivates now.
	p.AssetCap = 0.5
	updated, err := svc.Update(ctx, created.ID, p)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Active {
		t.Error("expected auto-deactivation after cap lowered below sold total")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Update(context.Background(), "missing", validFixedParams()); !errors.Is(err, ErrStrategyNotFound) {
		t.Fatalf("expected ErrStrategyNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, _ := svc.Create(ctx, validFixedParams())
	other, _ := svc.Create(ctx, validScaledParams())

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	all, _ := svc.store.LoadAll(ctx)
	if len(all) != 1 || all[0].ID != other.ID {
		t.Fatalf("unexpected surviving set: %+v", all)
	}

	if err := svc.Delete(ctx, created.ID); !errors.Is(err, ErrStrategyNotFound) {
		t.Fatalf("expected ErrStrategyNotFound, got %v", err)
	}
}

func TestSetActive(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p := validFixedParams()
	p.Active = false
	created, _ := svc.Create(ctx, p)
	if created.ActivatedAt != nil {
		t.Fatal("inactive creation must not set ActivatedAt")
	}

	s, err := svc.SetActive(ctx, created.ID, true)
	if err != nil {
		t.Fatalf("set active: %v", err)
	}
	if !s.Active || s.ActivatedAt == nil {
		t.Error("activation not recorded")
	}
	if s.NextExecutionAt != nil {
		t.Error("activation must never schedule an execution")
	}
}
