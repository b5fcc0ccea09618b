// Package strategies implements the user-facing commands over the
// strategy store: create, update, delete and the active toggle. The
// execution engine owns every other mutation.
package strategies

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cycle-strategy-engine/internal/domain"
	"cycle-strategy-engine/internal/engine"
	"cycle-strategy-engine/internal/planner"
	"cycle-strategy-engine/internal/storage"
)

// Validation errors.
var (
	ErrUnknownMode       = errors.New("unknown strategy mode")
	ErrUnknownKind       = errors.New("unknown strategy kind")
	ErrRangeOutOfBounds  = errors.New("active range endpoints must lie in [0,100]")
	ErrInvalidAccumulate = errors.New("accumulate requires activeRiskStart > activeRiskEnd")
	ErrInvalidDistribute = errors.New("distribute requires activeRiskStart < activeRiskEnd")
	ErrAmountNotPositive = errors.New("amountPerOrder must be positive")
	ErrInvalidFrequency  = errors.New("fixed strategy requires a valid frequency")
	ErrNegativeLevelStep = errors.New("levelStep must not be negative")
	ErrNegativeGrowth    = errors.New("levelGrowthPct must not be negative")
	ErrStrategyNotFound  = errors.New("strategy not found")
)

// Params carries the user-editable fields of a strategy.
type Params struct {
	AssetID         string
	Mode            domain.Mode
	Kind            domain.Kind
	ActiveRiskStart float64
	ActiveRiskEnd   float64
	AmountPerOrder  float64
	Frequency       domain.Frequency
	LevelStep       float64
	LevelGrowthPct  float64
	Capital         float64
	AssetCap        float64
	Active          bool
}

// Service executes strategy commands with read-modify-write cycles over
// the store.
type Service struct {
	store  storage.StrategyStore
	logger *logrus.Logger
	now    func() time.Time
}

// NewService creates a strategy command service.
func NewService(store storage.StrategyStore, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Create validates the parameters, assigns an ID, freezes the level plan
// for scaled strategies and persists the new strategy.
func (svc *Service) Create(ctx context.Context, p Params) (*domain.Strategy, error) {
	if err := validate(p); err != nil {
		return nil, err
	}

	now := svc.now()
	s := &domain.Strategy{
		ID:              uuid.NewString(),
		AssetID:         p.AssetID,
		Mode:            p.Mode,
		Kind:            p.Kind,
		ActiveRiskStart: p.ActiveRiskStart,
		ActiveRiskEnd:   p.ActiveRiskEnd,
		AmountPerOrder:  p.AmountPerOrder,
		Frequency:       p.Frequency,
		LevelStep:       p.LevelStep,
		LevelGrowthPct:  p.LevelGrowthPct,
		Capital:         p.Capital,
		AssetCap:        p.AssetCap,
		CreatedAt:       now.UnixMilli(),
	}
	planner.Freeze(s)
	engine.SetActive(s, p.Active, now)

	strategies, err := svc.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load strategies: %w", err)
	}
	strategies = append(strategies, s)
	if err := svc.store.SaveAll(ctx, strategies); err != nil {
		return nil, fmt.Errorf("save strategies: %w", err)
	}

	svc.logger.WithFields(logrus.Fields{
		"strategy": s.ID,
		"asset":    s.AssetID,
		"mode":     s.Mode,
		"kind":     s.Kind,
	}).Info("strategy created")
	return s.Clone(), nil
}

// Update replaces the editable fields of an existing strategy. Identity
// fields (ID, AssetID, Mode, Kind) and timestamps stay as created, and
// the execution history is always preserved. The level plan is re-frozen
// from the new parameters, and a lowered asset cap can immediately
// deactivate an exhausted distribute strategy.
func (svc *Service) Update(ctx context.Context, id string, p Params) (*domain.Strategy, error) {
	strategies, err := svc.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load strategies: %w", err)
	}

	s := findByID(strategies, id)
	if s == nil {
		return nil, ErrStrategyNotFound
	}
	if err := validateEditableFor(s.Mode, s.Kind, p); err != nil {
		return nil, err
	}

	s.ActiveRiskStart = p.ActiveRiskStart
	s.ActiveRiskEnd = p.ActiveRiskEnd
	s.AmountPerOrder = p.AmountPerOrder
	s.Frequency = p.Frequency
	s.LevelStep = p.LevelStep
	s.LevelGrowthPct = p.LevelGrowthPct
	s.Capital = p.Capital
	s.AssetCap = p.AssetCap
	planner.Freeze(s)
	engine.SetActive(s, p.Active, svc.now())
	engine.ApplyAutoDeactivate(s)

	if err := svc.store.SaveAll(ctx, strategies); err != nil {
		return nil, fmt.Errorf("save strategies: %w", err)
	}

	svc.logger.WithField("strategy", id).Info("strategy updated")
	return s.Clone(), nil
}

// Delete removes a strategy and its execution history.
func (svc *Service) Delete(ctx context.Context, id string) error {
	strategies, err := svc.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load strategies: %w", err)
	}

	kept := strategies[:0]
	found := false
	for _, s := range strategies {
		if s.ID == id {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	if !found {
		return ErrStrategyNotFound
	}

	if err := svc.store.SaveAll(ctx, kept); err != nil {
		return fmt.Errorf("save strategies: %w", err)
	}

	svc.logger.WithField("strategy", id).Info("strategy deleted")
	return nil
}

// SetActive flips the user switch on a strategy.
func (svc *Service) SetActive(ctx context.Context, id string, active bool) (*domain.Strategy, error) {
	strategies, err := svc.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load strategies: %w", err)
	}

	s := findByID(strategies, id)
	if s == nil {
		return nil, ErrStrategyNotFound
	}

	engine.SetActive(s, active, svc.now())
	engine.ApplyAutoDeactivate(s)

	if err := svc.store.SaveAll(ctx, strategies); err != nil {
		return nil, fmt.Errorf("save strategies: %w", err)
	}
	return s.Clone(), nil
}

func findByID(strategies []*domain.Strategy, id string) *domain.Strategy {
	for _, s := range strategies {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func validate(p Params) error {
	switch p.Mode {
	case domain.ModeAccumulate, domain.ModeDistribute:
	default:
		return ErrUnknownMode
	}
	switch p.Kind {
	case domain.KindFixed, domain.KindScaled:
	default:
		return ErrUnknownKind
	}
	return validateEditableFor(p.Mode, p.Kind, p)
}

// validateEditable checks the fields an update may change; mode and kind
// are immutable and validated against the stored strategy instead.
func validateEditable(p Params) error {
	if p.ActiveRiskStart < 0 || p.ActiveRiskStart > 100 ||
		p.ActiveRiskEnd < 0 || p.ActiveRiskEnd > 100 {
		return ErrRangeOutOfBounds
	}
	if p.AmountPerOrder <= 0 {
		return ErrAmountNotPositive
	}
	if p.LevelStep < 0 {
		return ErrNegativeLevelStep
	}
	if p.LevelGrowthPct < 0 {
		return ErrNegativeGrowth
	}
	return nil
}

func validateEditableFor(mode domain.Mode, kind domain.Kind, p Params) error {
	if err := validateEditable(p); err != nil {
		return err
	}
	if kind == domain.KindFixed && !p.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	return validateRange(mode, p)
}

// validateRange enforces the range asymmetry: accumulation happens as risk
// falls, distribution as risk rises.
func validateRange(mode domain.Mode, p Params) error {
	switch mode {
	case domain.ModeAccumulate:
		if p.ActiveRiskStart <= p.ActiveRiskEnd {
			return ErrInvalidAccumulate
		}
	case domain.ModeDistribute:
		if p.ActiveRiskStart >= p.ActiveRiskEnd {
			return ErrInvalidDistribute
		}
	}
	return nil
}
