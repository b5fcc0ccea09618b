package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cycle-strategy-engine/internal/domain"
	"cycle-strategy-engine/internal/storage"
	pgstore "cycle-strategy-engine/internal/storage/postgres"
)

func TestStrategyStore_SaveAndLoadRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewStrategyStore(pool)
	ctx := context.Background()

	s := &domain.Strategy{
		ID:              "strategy-001",
		AssetID:         "BTC",
		Mode:            domain.ModeAccumulate,
		Kind:            domain.KindScaled,
		ActiveRiskStart: 70,
		ActiveRiskEnd:   40,
		AmountPerOrder:  1000,
		LevelStep:       10,
		LevelGrowthPct:  25,
		Capital:         10000,
		Active:          true,
		NextExecutionAt: ptr(int64(1760000000000)),
		LastExecutionAt: ptr(int64(1759000000000)),
		ActivatedAt:     ptr(int64(1758000000000)),
		CreatedAt:       1757000000000,
		ComputedOrders: []domain.PlannedOrder{
			{Risk: 40, AmountFiat: 1000},
			{Risk: 50, AmountFiat: 1250},
		},
		Executions: []domain.Execution{
			{ID: "exec-001", Date: 1759000000000, RiskAtExecution: 48.5,
				AmountFiat: 1250, AssetAmount: 0.02, PricePerUnit: 62500},
		},
	}

	err := store.SaveAll(ctx, []*domain.Strategy{s})
	require.NoError(t, err)

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.AssetID, got.AssetID)
	assert.Equal(t, s.Mode, got.Mode)
	assert.Equal(t, s.Kind, got.Kind)
	assert.Equal(t, s.ActiveRiskStart, got.ActiveRiskStart)
	assert.Equal(t, s.ActiveRiskEnd, got.ActiveRiskEnd)
	assert.Equal(t, s.AmountPerOrder, got.AmountPerOrder)
	assert.Equal(t, s.LevelStep, got.LevelStep)
	assert.Equal(t, s.LevelGrowthPct, got.LevelGrowthPct)
	assert.Equal(t, s.Capital, got.Capital)
	assert.True(t, got.Active)
	require.NotNil(t, got.NextExecutionAt)
	assert.Equal(t, *s.NextExecutionAt, *got.NextExecutionAt)
	require.NotNil(t, got.LastExecutionAt)
	assert.Equal(t, *s.LastExecutionAt, *got.LastExecutionAt)
	require.NotNil(t, got.ActivatedAt)
	assert.Equal(t, *s.ActivatedAt, *got.ActivatedAt)
	assert.Equal(t, s.CreatedAt, got.CreatedAt)
	assert.Equal(t, s.ComputedOrders, got.ComputedOrders)
	require.Len(t, got.Executions, 1)
	assert.Equal(t, s.Executions[0], got.Executions[0])
}

func TestStrategyStore_NilSchedulingFields(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewStrategyStore(pool)
	ctx := context.Background()

	s := &domain.Strategy{
		ID:              "strategy-nil",
		AssetID:         "ETH",
		Mode:            domain.ModeDistribute,
		Kind:            domain.KindFixed,
		ActiveRiskStart: 60,
		ActiveRiskEnd:   90,
		AmountPerOrder:  500,
		Frequency:       domain.FrequencyWeekly,
		CreatedAt:       1757000000000,
	}

	require.NoError(t, store.SaveAll(ctx, []*domain.Strategy{s}))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.Nil(t, got.NextExecutionAt)
	assert.Nil(t, got.LastExecutionAt)
	assert.Nil(t, got.ActivatedAt)
	assert.Equal(t, domain.FrequencyWeekly, got.Frequency)
	assert.Empty(t, got.ComputedOrders)
	assert.Empty(t, got.Executions)
}

func TestStrategyStore_UpsertUpdatesEditableFields(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewStrategyStore(pool)
	ctx := context.Background()

	s := &domain.Strategy{
		ID:              "strategy-edit",
		AssetID:         "BTC",
		Mode:            domain.ModeAccumulate,
		Kind:            domain.KindFixed,
		ActiveRiskStart: 80,
		ActiveRiskEnd:   20,
		AmountPerOrder:  100,
		Frequency:       domain.FrequencyDaily,
		Active:          true,
		CreatedAt:       1757000000000,
	}
	require.NoError(t, store.SaveAll(ctx, []*domain.Strategy{s}))

	s.AmountPerOrder = 250
	s.Frequency = domain.FrequencyMonthly
	s.Active = false
	s.NextExecutionAt = ptr(int64(1761000000000))
	require.NoError(t, store.SaveAll(ctx, []*domain.Strategy{s}))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded[0]
	assert.Equal(t, float64(250), got.AmountPerOrder)
	assert.Equal(t, domain.FrequencyMonthly, got.Frequency)
	assert.False(t, got.Active)
	require.NotNil(t, got.NextExecutionAt)
	assert.Equal(t, int64(1761000000000), *got.NextExecutionAt)
}

func TestStrategyStore_ExecutionsAppendInOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewStrategyStore(pool)
	ctx := context.Background()

	s := &domain.Strategy{
		ID:        "strategy-exec",
		AssetID:   "BTC",
		Mode:      domain.ModeAccumulate,
		Kind:      domain.KindFixed,
		CreatedAt: 1757000000000,
		Executions: []domain.Execution{
			{ID: "exec-1", Date: 1000, RiskAtExecution: 50, AmountFiat: 100, AssetAmount: 0.001, PricePerUnit: 100000},
		},
	}
	require.NoError(t, store.SaveAll(ctx, []*domain.Strategy{s}))

	// A later snapshot carries the old execution plus a new one; only the
	// new one gets inserted, and seq order is preserved on load.
	s.Executions = append(s.Executions,
		domain.Execution{ID: "exec-2", Date: 2000, RiskAtExecution: 45, AmountFiat: 100, AssetAmount: 0.0011, PricePerUnit: 90000},
	)
	require.NoError(t, store.SaveAll(ctx, []*domain.Strategy{s}))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Len(t, loaded[0].Executions, 2)
	assert.Equal(t, "exec-1", loaded[0].Executions[0].ID)
	assert.Equal(t, "exec-2", loaded[0].Executions[1].ID)
}

func TestStrategyStore_SaveAllReplacesSet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewStrategyStore(pool)
	ctx := context.Background()

	a := &domain.Strategy{
		ID: "a", AssetID: "BTC", Mode: domain.ModeAccumulate, Kind: domain.KindFixed,
		CreatedAt:  1,
		Executions: []domain.Execution{{ID: "exec-a", Date: 1000, AmountFiat: 100}},
	}
	b := &domain.Strategy{
		ID: "b", AssetID: "ETH", Mode: domain.ModeDistribute, Kind: domain.KindScaled,
		ActiveRiskStart: 60, ActiveRiskEnd: 90, CreatedAt: 2,
	}
	require.NoError(t, store.SaveAll(ctx, []*domain.Strategy{a, b}))

	// Saving without "a" deletes it and cascades its executions.
	require.NoError(t, store.SaveAll(ctx, []*domain.Strategy{b}))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "b", loaded[0].ID)

	var execCount int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM executions`).Scan(&execCount)
	require.NoError(t, err)
	assert.Zero(t, execCount, "executions should cascade with their strategy")

	// An empty snapshot clears everything.
	require.NoError(t, store.SaveAll(ctx, nil))
	loaded, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestStrategyStore_LoadAllOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewStrategyStore(pool)
	ctx := context.Background()

	strategies := []*domain.Strategy{
		{ID: "z", AssetID: "BTC", Mode: domain.ModeAccumulate, Kind: domain.KindFixed, CreatedAt: 1},
		{ID: "a", AssetID: "BTC", Mode: domain.ModeAccumulate, Kind: domain.KindFixed, CreatedAt: 2},
		{ID: "b", AssetID: "BTC", Mode: domain.ModeAccumulate, Kind: domain.KindFixed, CreatedAt: 1},
	}
	require.NoError(t, store.SaveAll(ctx, strategies))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, "b", loaded[0].ID)
	assert.Equal(t, "z", loaded[1].ID)
	assert.Equal(t, "a", loaded[2].ID)
}

func TestStrategyStore_RejectsInvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewStrategyStore(pool)
	ctx := context.Background()

	err := store.SaveAll(ctx, []*domain.Strategy{{ID: ""}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	err = store.SaveAll(ctx, []*domain.Strategy{nil})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
