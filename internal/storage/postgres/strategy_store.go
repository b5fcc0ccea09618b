package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"cycle-strategy-engine/internal/domain"
	"cycle-strategy-engine/internal/storage"
)

// StrategyStore implements storage.StrategyStore using PostgreSQL.
// Strategies and their executions live in two tables; SaveAll replaces
// the whole set in one transaction, so the tables always hold exactly
// the last snapshot written.
type StrategyStore struct {
	pool *Pool
}

// NewStrategyStore creates a new StrategyStore.
func NewStrategyStore(pool *Pool) *StrategyStore {
	return &StrategyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StrategyStore = (*StrategyStore)(nil)

// LoadAll returns all strategies with their execution history, ordered
// by creation time then ID.
func (s *StrategyStore) LoadAll(ctx context.Context) ([]*domain.Strategy, error) {
	query := `
		SELECT
			id, asset_id, mode, kind,
			active_risk_start, active_risk_end, amount_per_order, frequency,
			level_step, level_growth_pct, capital, asset_cap, active,
			next_execution_at, last_execution_at, activated_at, created_at,
			computed_orders
		FROM strategies
		ORDER BY created_at, id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query strategies: %w", err)
	}
	defer rows.Close()

	var strategies []*domain.Strategy
	byID := make(map[string]*domain.Strategy)
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		strategies = append(strategies, st)
		byID[st.ID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategies: %w", err)
	}

	if err := s.attachExecutions(ctx, byID); err != nil {
		return nil, err
	}
	return strategies, nil
}

// attachExecutions loads all executions in seq order and appends them to
// their strategies.
func (s *StrategyStore) attachExecutions(ctx context.Context, byID map[string]*domain.Strategy) error {
	if len(byID) == 0 {
		return nil
	}

	query := `
		SELECT strategy_id, id, date_ms, risk_at_execution,
			amount_fiat, asset_amount, price_per_unit
		FROM executions
		ORDER BY strategy_id, seq
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var strategyID string
		var e domain.Execution
		if err := rows.Scan(&strategyID, &e.ID, &e.Date, &e.RiskAtExecution,
			&e.AmountFiat, &e.AssetAmount, &e.PricePerUnit); err != nil {
			return fmt.Errorf("scan execution: %w", err)
		}
		if st, ok := byID[strategyID]; ok {
			st.Executions = append(st.Executions, e)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate executions: %w", err)
	}
	return nil
}

// SaveAll replaces the stored set with the given snapshot in one
// transaction: strategies are upserted, executions not yet stored are
// appended, and strategies absent from the snapshot are deleted along
// with their executions.
func (s *StrategyStore) SaveAll(ctx context.Context, strategies []*domain.Strategy) error {
	for _, st := range strategies {
		if st == nil || st.ID == "" {
			return fmt.Errorf("%w: strategy without id", storage.ErrInvalidInput)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	upsert := `
		INSERT INTO strategies (
			id, asset_id, mode, kind,
			active_risk_start, active_risk_end, amount_per_order, frequency,
			level_step, level_growth_pct, capital, asset_cap, active,
			next_execution_at, last_execution_at, activated_at, created_at,
			computed_orders
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12, $13,
			$14, $15, $16, $17,
			$18
		)
		ON CONFLICT (id) DO UPDATE SET
			active_risk_start = EXCLUDED.active_risk_start,
			active_risk_end = EXCLUDED.active_risk_end,
			amount_per_order = EXCLUDED.amount_per_order,
			frequency = EXCLUDED.frequency,
			level_step = EXCLUDED.level_step,
			level_growth_pct = EXCLUDED.level_growth_pct,
			capital = EXCLUDED.capital,
			asset_cap = EXCLUDED.asset_cap,
			active = EXCLUDED.active,
			next_execution_at = EXCLUDED.next_execution_at,
			last_execution_at = EXCLUDED.last_execution_at,
			activated_at = EXCLUDED.activated_at,
			computed_orders = EXCLUDED.computed_orders
	`

	insertExec := `
		INSERT INTO executions (
			id, strategy_id, seq, date_ms, risk_at_execution,
			amount_fiat, asset_amount, price_per_unit
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	keep := make([]string, 0, len(strategies))
	for _, st := range strategies {
		keep = append(keep, st.ID)

		orders, err := json.Marshal(st.ComputedOrders)
		if err != nil {
			return fmt.Errorf("marshal computed orders: %w", err)
		}

		_, err = tx.Exec(ctx, upsert,
			st.ID, st.AssetID, st.Mode, st.Kind,
			st.ActiveRiskStart, st.ActiveRiskEnd, st.AmountPerOrder, st.Frequency,
			st.LevelStep, st.LevelGrowthPct, st.Capital, st.AssetCap, st.Active,
			st.NextExecutionAt, st.LastExecutionAt, st.ActivatedAt, st.CreatedAt,
			orders,
		)
		if err != nil {
			return fmt.Errorf("upsert strategy %s: %w", st.ID, err)
		}

		for i, e := range st.Executions {
			_, err := tx.Exec(ctx, insertExec,
				e.ID, st.ID, i, e.Date, e.RiskAtExecution,
				e.AmountFiat, e.AssetAmount, e.PricePerUnit,
			)
			if err != nil {
				return fmt.Errorf("insert execution %s: %w", e.ID, err)
			}
		}
	}

	// Executions cascade with their strategy.
	if _, err := tx.Exec(ctx,
		`DELETE FROM strategies WHERE NOT (id = ANY($1))`, keep); err != nil {
		return fmt.Errorf("delete absent strategies: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStrategy(row rowScanner) (*domain.Strategy, error) {
	var st domain.Strategy
	var orders []byte

	err := row.Scan(
		&st.ID, &st.AssetID, &st.Mode, &st.Kind,
		&st.ActiveRiskStart, &st.ActiveRiskEnd, &st.AmountPerOrder, &st.Frequency,
		&st.LevelStep, &st.LevelGrowthPct, &st.Capital, &st.AssetCap, &st.Active,
		&st.NextExecutionAt, &st.LastExecutionAt, &st.ActivatedAt, &st.CreatedAt,
		&orders,
	)
	if err != nil {
		return nil, err
	}

	if len(orders) > 0 {
		if err := json.Unmarshal(orders, &st.ComputedOrders); err != nil {
			return nil, fmt.Errorf("unmarshal computed orders: %w", err)
		}
	}
	return &st, nil
}
