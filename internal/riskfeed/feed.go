// Package riskfeed supplies the engine with the current risk score and
// optional price anchors per asset. Implementations are polled, not
// pushed: the engine asks for the current snapshot on every tick and a
// feed that cannot produce a fresh value answers with its last known one.
package riskfeed

import (
	"context"
	"errors"

	"cycle-strategy-engine/internal/domain"
)

// ErrNoSnapshot is returned when a feed has never seen a value for the
// requested asset.
var ErrNoSnapshot = errors.New("no risk snapshot for asset")

// Feed supplies the current risk snapshot for an asset.
type Feed interface {
	Current(ctx context.Context, assetID string) (domain.RiskSnapshot, error)
}
