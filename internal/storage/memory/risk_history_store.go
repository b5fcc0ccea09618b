package memory

import (
	"context"
	"sort"
	"sync"

	"cycle-strategy-engine/internal/domain"
	"cycle-strategy-engine/internal/storage"
)

// RiskHistoryStore is an in-memory implementation of storage.RiskHistoryStore.
type RiskHistoryStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]*domain.RiskScorePoint // asset -> date -> point
}

// NewRiskHistoryStore creates a new in-memory risk history store.
func NewRiskHistoryStore() *RiskHistoryStore {
	return &RiskHistoryStore{
		data: make(map[string]map[int64]*domain.RiskScorePoint),
	}
}

// InsertBatch adds points; an existing (asset, date) point is overwritten.
func (s *RiskHistoryStore) InsertBatch(_ context.Context, points []*domain.RiskScorePoint) error {
	for _, p := range points {
		if p == nil || p.AssetID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		byDate, ok := s.data[p.AssetID]
		if !ok {
			byDate = make(map[int64]*domain.RiskScorePoint)
			s.data[p.AssetID] = byDate
		}
		cp := *p
		byDate[p.Date] = &cp
	}
	return nil
}

// GetByAsset retrieves all points for an asset, ordered by date ASC.
func (s *RiskHistoryStore) GetByAsset(_ context.Context, assetID string) ([]*domain.RiskScorePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RiskScorePoint
	for _, p := range s.data[assetID] {
		cp := *p
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})

	return result, nil
}

// GetLatest retrieves the most recent point for an asset.
func (s *RiskHistoryStore) GetLatest(ctx context.Context, assetID string) (*domain.RiskScorePoint, error) {
	points, err := s.GetByAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}
	return points[len(points)-1], nil
}

var _ storage.RiskHistoryStore = (*RiskHistoryStore)(nil)
