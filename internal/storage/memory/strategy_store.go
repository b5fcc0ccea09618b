// Package memory provides in-memory store implementations used by tests,
// the simulator and single-process deployments without a database.
package memory

import (
	"context"
	"sort"
	"sync"

	"cycle-strategy-engine/internal/domain"
	"cycle-strategy-engine/internal/storage"
)

// StrategyStore is an in-memory implementation of storage.StrategyStore.
// Reads and writes exchange deep copies so callers can never mutate the
// stored snapshot behind the store's back.
type StrategyStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Strategy // keyed by strategy ID
}

// NewStrategyStore creates a new in-memory strategy store.
func NewStrategyStore() *StrategyStore {
	return &StrategyStore{
		data: make(map[string]*domain.Strategy),
	}
}

// LoadAll returns deep copies of all stored strategies, ordered by
// creation time (ID as tiebreaker for stable ordering).
func (s *StrategyStore) LoadAll(_ context.Context) ([]*domain.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Strategy, 0, len(s.data))
	for _, st := range s.data {
		result = append(result, st.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// SaveAll replaces the stored set with deep copies of the given snapshot.
func (s *StrategyStore) SaveAll(_ context.Context, strategies []*domain.Strategy) error {
	for _, st := range strategies {
		if st == nil || st.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*domain.Strategy, len(strategies))
	for _, st := range strategies {
		next[st.ID] = st.Clone()
	}
	s.data = next
	return nil
}

var _ storage.StrategyStore = (*StrategyStore)(nil)
