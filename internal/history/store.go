// Package history persists price ticks and realized P&L to ClickHouse for
// the dashboard. The store is optional: the engine runs without it, and a
// write failure never blocks trading.
package history

import (
	"context"
	"fmt"

	"memetrader/internal/engine"
)

// PricePoint is one recorded price tick for a mint.
type PricePoint struct {
	Mint        string
	Price       float64
	TimestampMs int64
}

// PnLPoint is one realized P&L event, recorded per exit fill.
type PnLPoint struct {
	PositionID  string
	Mint        string
	Realized    float64
	TimestampMs int64
}

// Store implements the engine's history recorder on ClickHouse.
type Store struct {
	conn *Conn
}

// NewStore creates a new Store.
func NewStore(conn *Conn) *Store {
	return &Store{conn: conn}
}

// Compile-time interface check.
var _ engine.HistoryRecorder = (*Store)(nil)

// EnsureSchema creates the history tables if they do not exist.
// MergeTree with no deduplication: ticks are append-only.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS price_history (
			mint         String,
			timestamp_ms UInt64,
			price        Float64
		) ENGINE = MergeTree()
		ORDER BY (mint, timestamp_ms)`,
		`CREATE TABLE IF NOT EXISTS pnl_history (
			position_id  String,
			mint         String,
			timestamp_ms UInt64,
			realized     Float64
		) ENGINE = MergeTree()
		ORDER BY (timestamp_ms, position_id)`,
	}
	for _, q := range ddl {
		if err := s.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure history schema: %w", err)
		}
	}
	return nil
}

// RecordPrice appends one price tick for a mint.
func (s *Store) RecordPrice(ctx context.Context, mint string, price float64, tsMs int64) error {
	err := s.conn.Exec(ctx, `
		INSERT INTO price_history (mint, timestamp_ms, price)
		VALUES (?, ?, ?)
	`, mint, uint64(tsMs), price)
	if err != nil {
		return fmt.Errorf("insert price tick: %w", err)
	}
	return nil
}

// RecordPnL appends one realized P&L event.
func (s *Store) RecordPnL(ctx context.Context, positionID, mint string, realized float64, tsMs int64) error {
	err := s.conn.Exec(ctx, `
		INSERT INTO pnl_history (position_id, mint, timestamp_ms, realized)
		VALUES (?, ?, ?, ?)
	`, positionID, mint, uint64(tsMs), realized)
	if err != nil {
		return fmt.Errorf("insert pnl event: %w", err)
	}
	return nil
}

// PriceHistory retrieves ticks for a mint within [start, end] (inclusive),
// ordered by timestamp ASC.
func (s *Store) PriceHistory(ctx context.Context, mint string, start, end int64) ([]*PricePoint, error) {
	query := `
		SELECT mint, timestamp_ms, price
		FROM price_history
		WHERE mint = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	var points []*PricePoint
	for rows.Next() {
		var p PricePoint
		var timestampMs uint64

		if err := rows.Scan(&p.Mint, &timestampMs, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price history row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price history rows: %w", err)
	}

	return points, nil
}

// PnLHistory retrieves realized P&L events within [start, end] (inclusive),
// ordered by timestamp ASC.
func (s *Store) PnLHistory(ctx context.Context, start, end int64) ([]*PnLPoint, error) {
	query := `
		SELECT position_id, mint, timestamp_ms, realized
		FROM pnl_history
		WHERE timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query pnl history: %w", err)
	}
	defer rows.Close()

	var points []*PnLPoint
	for rows.Next() {
		var p PnLPoint
		var timestampMs uint64

		if err := rows.Scan(&p.PositionID, &p.Mint, &timestampMs, &p.Realized); err != nil {
			return nil, fmt.Errorf("scan pnl history row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pnl history rows: %w", err)
	}

	return points, nil
}
