package storage

import (
	"context"

	"cycle-strategy-engine/internal/domain"
)

// StrategyStore persists the full set of strategies. The engine reads the
// set once at the start of a tick and writes it once at the end, so the
// store only needs snapshot semantics: LoadAll returns copies the caller
// may mutate freely, and SaveAll replaces the stored set with the given
// one. Single writer; callers serialize read-modify-write cycles.
type StrategyStore interface {
	// LoadAll returns all stored strategies, ordered by creation time.
	LoadAll(ctx context.Context) ([]*domain.Strategy, error)

	// SaveAll replaces the stored set with the given snapshot.
	// Strategies absent from the snapshot are removed.
	SaveAll(ctx context.Context, strategies []*domain.Strategy) error
}

// RiskHistoryStore persists computed daily risk-score points.
type RiskHistoryStore interface {
	// InsertBatch adds points; re-inserting an existing (asset, date)
	// point is not an error, the newer row wins.
	InsertBatch(ctx context.Context, points []*domain.RiskScorePoint) error

	// GetByAsset retrieves all points for an asset, ordered by date ASC.
	GetByAsset(ctx context.Context, assetID string) ([]*domain.RiskScorePoint, error)

	// GetLatest retrieves the most recent point for an asset.
	// Returns ErrNotFound if the asset has no history.
	GetLatest(ctx context.Context, assetID string) (*domain.RiskScorePoint, error)
}
