package postgres

import (
	"context"
	"fmt"

	"memetrader/internal/domain"
	"memetrader/internal/ledger"
)

// CounterStore implements ledger.CounterStore using PostgreSQL.
type CounterStore struct {
	pool *Pool
}

// NewCounterStore creates a new CounterStore.
func NewCounterStore(pool *Pool) *CounterStore {
	return &CounterStore{pool: pool}
}

// Compile-time interface check.
var _ ledger.CounterStore = (*CounterStore)(nil)

// Get retrieves counters for a day key. Returns ErrNotFound for fresh days.
func (s *CounterStore) Get(ctx context.Context, day string) (*domain.DailyCounters, error) {
	query := `
		SELECT day, trade_count, realized_loss, consecutive_errors, last_error_at
		FROM daily_counters
		WHERE day = $1
	`

	var c domain.DailyCounters
	err := s.pool.QueryRow(ctx, query, day).Scan(
		&c.Day, &c.TradeCount, &c.RealizedLoss, &c.ConsecutiveErrors, &c.LastErrorAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("get daily counters: %w", err)
	}
	return &c, nil
}

// Put inserts or replaces the counters for their day.
func (s *CounterStore) Put(ctx context.Context, c *domain.DailyCounters) error {
	if c == nil || c.Day == "" {
		return ledger.ErrInvalidInput
	}

	query := `
		INSERT INTO daily_counters (day, trade_count, realized_loss, consecutive_errors, last_error_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (day) DO UPDATE SET
			trade_count = EXCLUDED.trade_count,
			realized_loss = EXCLUDED.realized_loss,
			consecutive_errors = EXCLUDED.consecutive_errors,
			last_error_at = EXCLUDED.last_error_at
	`

	_, err := s.pool.Exec(ctx, query,
		c.Day, c.TradeCount, c.RealizedLoss, c.ConsecutiveErrors, c.LastErrorAt,
	)
	if err != nil {
		return fmt.Errorf("put daily counters: %w", err)
	}
	return nil
}
