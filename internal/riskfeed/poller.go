package riskfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"cycle-strategy-engine/internal/domain"
)

// DefaultRefreshInterval bounds how often the poller re-fetches the
// score document. Scores move on a daily cadence, so anything shorter
// than the engine tick is plenty.
const DefaultRefreshInterval = 30 * time.Second

// scoreDocument mirrors the published risk-score JSON: a top-level
// timestamp plus a map of per-asset entries.
type scoreDocument struct {
	UpdatedAt string                `json:"updated_at"`
	Assets    map[string]scoreEntry `json:"assets"`
}

type scoreEntry struct {
	AssetID      string  `json:"asset_id"`
	RiskScore    float64 `json:"risk_score"`
	Price        float64 `json:"price"`
	FloorPrice   float64 `json:"floor_price"`
	CeilingPrice float64 `json:"ceiling_price"`
}

// Poller fetches the score document over HTTP and serves snapshots from
// an in-memory cache. A failed fetch degrades to the last known values
// instead of failing the caller.
type Poller struct {
	http     *resty.Client
	logger   *logrus.Logger
	interval time.Duration
	now      func() time.Time

	mu          sync.Mutex
	snapshots   map[string]domain.RiskSnapshot
	lastFetch   time.Time
	lastFetchOK bool
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	// Endpoint is the full URL of the score document.
	Endpoint string
	// RefreshInterval is the minimum time between fetches.
	// Zero means DefaultRefreshInterval.
	RefreshInterval time.Duration
	// Timeout bounds a single fetch. Zero means 10s.
	Timeout time.Duration
	// Logger for fetch outcomes. Nil means the standard logger.
	Logger *logrus.Logger
}

// NewPoller creates a polling feed against opts.Endpoint.
func NewPoller(opts PollerOptions) (*Poller, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("riskfeed: endpoint is required")
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	return &Poller{
		http: resty.New().
			SetBaseURL(opts.Endpoint).
			SetTimeout(opts.Timeout).
			SetRetryCount(2),
		logger:    opts.Logger,
		interval:  opts.RefreshInterval,
		now:       time.Now,
		snapshots: make(map[string]domain.RiskSnapshot),
	}, nil
}

var _ Feed = (*Poller)(nil)

// Current returns the snapshot for assetID, refreshing the cache when it
// is older than the refresh interval. When the refresh fails the last
// known snapshot is served; ErrNoSnapshot means no fetch ever succeeded
// for this asset.
func (p *Poller) Current(ctx context.Context, assetID string) (domain.RiskSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.now().Sub(p.lastFetch) >= p.interval || !p.lastFetchOK {
		p.refreshLocked(ctx)
	}

	snap, ok := p.snapshots[assetID]
	if !ok {
		return domain.RiskSnapshot{}, fmt.Errorf("%w: %s", ErrNoSnapshot, assetID)
	}
	return snap, nil
}

// refreshLocked fetches the score document and replaces the cache
// entries it covers. Caller holds p.mu.
func (p *Poller) refreshLocked(ctx context.Context) {
	p.lastFetch = p.now()

	resp, err := p.http.R().SetContext(ctx).Get("")
	if err != nil {
		p.lastFetchOK = false
		p.logger.WithError(err).Warn("risk feed fetch failed, serving last known scores")
		return
	}
	if resp.IsError() {
		p.lastFetchOK = false
		p.logger.WithField("status", resp.StatusCode()).
			Warn("risk feed fetch failed, serving last known scores")
		return
	}

	var doc scoreDocument
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		p.lastFetchOK = false
		p.logger.WithError(err).Warn("risk feed document malformed, serving last known scores")
		return
	}

	nowMs := p.now().UnixMilli()
	for id, entry := range doc.Assets {
		if entry.AssetID == "" {
			entry.AssetID = id
		}
		p.snapshots[entry.AssetID] = domain.RiskSnapshot{
			AssetID:        entry.AssetID,
			Score:          entry.RiskScore,
			FloorPrice:     entry.FloorPrice,
			CeilingPrice:   entry.CeilingPrice,
			ReferencePrice: entry.Price,
			UpdatedAt:      nowMs,
		}
	}
	p.lastFetchOK = true
}
