package riskfeed

import (
	"context"
	"sync"

	"cycle-strategy-engine/internal/domain"
)

// Static is a feed whose snapshots are set programmatically. It backs the
// simulator and tests, where the risk path is scripted.
type Static struct {
	mu    sync.RWMutex
	snaps map[string]domain.RiskSnapshot
}

// NewStatic creates a static feed seeded with the given snapshots.
func NewStatic(snaps ...domain.RiskSnapshot) *Static {
	f := &Static{snaps: make(map[string]domain.RiskSnapshot)}
	for _, s := range snaps {
		f.snaps[s.AssetID] = s
	}
	return f
}

// Set replaces the snapshot for the snapshot's asset.
func (f *Static) Set(snap domain.RiskSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[snap.AssetID] = snap
}

// Current returns the configured snapshot for the asset.
func (f *Static) Current(_ context.Context, assetID string) (domain.RiskSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	snap, ok := f.snaps[assetID]
	if !ok {
		return domain.RiskSnapshot{}, ErrNoSnapshot
	}
	return snap, nil
}

var _ Feed = (*Static)(nil)
