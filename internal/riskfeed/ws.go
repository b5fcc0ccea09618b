package riskfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"cycle-strategy-engine/internal/domain"
)

// WSConfig configures the websocket feed.
type WSConfig struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for keepalive ping frames.
	PingInterval time.Duration
	// ReadTimeout bounds a single read.
	ReadTimeout time.Duration
	// WriteTimeout bounds a single write.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns the standard websocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSFeed subscribes to a websocket stream of score documents and serves
// snapshots from its cache. The stream pushes the same document shape
// the HTTP endpoint serves; each message replaces the entries it
// covers. The connection is re-established with exponential backoff and
// the cache keeps serving last known values while disconnected.
type WSFeed struct {
	endpoint string
	config   WSConfig
	logger   *logrus.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	snapshots   map[string]domain.RiskSnapshot
	snapshotsMu sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSFeed connects to endpoint and starts the read loop. A nil config
// means DefaultWSConfig.
func NewWSFeed(ctx context.Context, endpoint string, config *WSConfig, logger *logrus.Logger) (*WSFeed, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	f := &WSFeed{
		endpoint:  endpoint,
		config:    cfg,
		logger:    logger,
		snapshots: make(map[string]domain.RiskSnapshot),
		done:      make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	f.wg.Add(2)
	go f.readLoop()
	go f.pingLoop()

	return f, nil
}

var _ Feed = (*WSFeed)(nil)

// Current returns the last snapshot received for assetID.
func (f *WSFeed) Current(_ context.Context, assetID string) (domain.RiskSnapshot, error) {
	f.snapshotsMu.RLock()
	snap, ok := f.snapshots[assetID]
	f.snapshotsMu.RUnlock()

	if !ok {
		return domain.RiskSnapshot{}, fmt.Errorf("%w: %s", ErrNoSnapshot, assetID)
	}
	return snap, nil
}

// Close shuts down the connection and background goroutines.
func (f *WSFeed) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	return nil
}

func (f *WSFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	f.conn = conn
	return nil
}

func (f *WSFeed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			if !f.waitAndReconnect(reconnectDelay) {
				return
			}
			reconnectDelay = nextDelay(reconnectDelay, f.config.MaxReconnectDelay)
			continue
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}
			f.logger.WithError(err).Warn("risk feed websocket read failed, reconnecting")

			f.connMu.Lock()
			if f.conn != nil {
				f.conn.Close()
				f.conn = nil
			}
			f.connMu.Unlock()
			continue
		}

		reconnectDelay = f.config.ReconnectDelay
		f.handleMessage(message)
	}
}

// waitAndReconnect sleeps for delay and dials again. Returns false when
// the feed is shutting down.
func (f *WSFeed) waitAndReconnect(delay time.Duration) bool {
	select {
	case <-f.done:
		return false
	case <-time.After(delay):
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		f.logger.WithError(err).Warn("risk feed websocket reconnect failed")
	}
	return true
}

func nextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		next = max
	}
	return next
}

func (f *WSFeed) handleMessage(message []byte) {
	var doc scoreDocument
	if err := json.Unmarshal(message, &doc); err != nil {
		f.logger.WithError(err).Warn("risk feed websocket message malformed")
		return
	}

	nowMs := time.Now().UnixMilli()
	f.snapshotsMu.Lock()
	for id, entry := range doc.Assets {
		if entry.AssetID == "" {
			entry.AssetID = id
		}
		f.snapshots[entry.AssetID] = domain.RiskSnapshot{
			AssetID:        entry.AssetID,
			Score:          entry.RiskScore,
			FloorPrice:     entry.FloorPrice,
			CeilingPrice:   entry.CeilingPrice,
			ReferencePrice: entry.Price,
			UpdatedAt:      nowMs,
		}
	}
	f.snapshotsMu.Unlock()
}

func (f *WSFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				f.conn.WriteMessage(websocket.PingMessage, nil)
			}
			f.connMu.Unlock()
		}
	}
}
