package clickhouse

import (
	"context"
	"fmt"

	"cycle-strategy-engine/internal/domain"
	"cycle-strategy-engine/internal/storage"
)

// RiskHistoryStore implements storage.RiskHistoryStore using ClickHouse.
// The table is a ReplacingMergeTree keyed on (asset_id, date_ms), so
// re-inserting a day replaces the old row after a merge and queries
// read through FINAL to see the winner immediately.
type RiskHistoryStore struct {
	conn *Conn
}

// NewRiskHistoryStore creates a new RiskHistoryStore.
func NewRiskHistoryStore(conn *Conn) *RiskHistoryStore {
	return &RiskHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RiskHistoryStore = (*RiskHistoryStore)(nil)

// InsertBatch adds score points. Re-inserting an existing (asset, date)
// point is not an error, the newer row wins.
func (s *RiskHistoryStore) InsertBatch(ctx context.Context, points []*domain.RiskScorePoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO risk_history (
			asset_id, date_ms, price, trend_value, residual,
			z_score, raw_score, smoothed_score, risk_score,
			floor_price, ceiling_price
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.AssetID, uint64(p.Date), p.Price, p.TrendValue, p.Residual,
			p.ZScore, p.RawScore, p.SmoothedScore, p.RiskScore,
			p.FloorPrice, p.CeilingPrice,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByAsset retrieves all points for an asset, ordered by date ASC.
func (s *RiskHistoryStore) GetByAsset(ctx context.Context, assetID string) ([]*domain.RiskScorePoint, error) {
	query := `
		SELECT asset_id, date_ms, price, trend_value, residual,
			z_score, raw_score, smoothed_score, risk_score,
			floor_price, ceiling_price
		FROM risk_history FINAL
		WHERE asset_id = ?
		ORDER BY date_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("query by asset id: %w", err)
	}
	defer rows.Close()

	var points []*domain.RiskScorePoint
	for rows.Next() {
		p, err := scanRiskScorePoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan risk score point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return points, nil
}

// GetLatest retrieves the most recent point for an asset. Returns
// ErrNotFound if the asset has no history.
func (s *RiskHistoryStore) GetLatest(ctx context.Context, assetID string) (*domain.RiskScorePoint, error) {
	query := `
		SELECT asset_id, date_ms, price, trend_value, residual,
			z_score, raw_score, smoothed_score, risk_score,
			floor_price, ceiling_price
		FROM risk_history FINAL
		WHERE asset_id = ?
		ORDER BY date_ms DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate rows: %w", err)
		}
		return nil, storage.ErrNotFound
	}

	p, err := scanRiskScorePoint(rows)
	if err != nil {
		return nil, fmt.Errorf("scan risk score point: %w", err)
	}
	return p, nil
}

// rowScanner covers driver.Row and driver.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRiskScorePoint(row rowScanner) (*domain.RiskScorePoint, error) {
	var p domain.RiskScorePoint
	var dateMs uint64

	err := row.Scan(
		&p.AssetID, &dateMs, &p.Price, &p.TrendValue, &p.Residual,
		&p.ZScore, &p.RawScore, &p.SmoothedScore, &p.RiskScore,
		&p.FloorPrice, &p.CeilingPrice,
	)
	if err != nil {
		return nil, err
	}

	p.Date = int64(dateMs)
	return &p, nil
}
