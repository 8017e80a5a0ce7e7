package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"memetrader/internal/domain"
	"memetrader/internal/ledger"
)

// PositionStore implements ledger.PositionStore using PostgreSQL.
// Take-profit levels are stored as a jsonb column; pgx marshals them
// through encoding/json.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ ledger.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	position_id, mint, symbol, source, tier,
	status, opened_at, closed_at,
	entry_price, entry_size, remaining_size, realized_pnl,
	take_profits, stop_loss_price, trailing_watermark, trailing_stop_pct,
	stop_fired, close_reason, updated_at
`

// Insert adds a new position. Returns ErrDuplicateKey if the ID exists.
func (s *PositionStore) Insert(ctx context.Context, p *domain.Position) error {
	if err := ledger.ValidatePosition(p); err != nil {
		return err
	}

	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19
		)
	`

	_, err := s.pool.Exec(ctx, query, positionArgs(p)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ledger.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// Update replaces the stored position. Returns ErrNotFound if absent.
func (s *PositionStore) Update(ctx context.Context, p *domain.Position) error {
	if err := ledger.ValidatePosition(p); err != nil {
		return err
	}

	query := `
		UPDATE positions SET
			mint = $2, symbol = $3, source = $4, tier = $5,
			status = $6, opened_at = $7, closed_at = $8,
			entry_price = $9, entry_size = $10, remaining_size = $11, realized_pnl = $12,
			take_profits = $13, stop_loss_price = $14, trailing_watermark = $15,
			trailing_stop_pct = $16, stop_fired = $17, close_reason = $18, updated_at = $19
		WHERE position_id = $1
	`

	tag, err := s.pool.Exec(ctx, query, positionArgs(p)...)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// GetByID retrieves a position. Returns ErrNotFound if not exists.
func (s *PositionStore) GetByID(ctx context.Context, positionID string) (*domain.Position, error) {
	query := `SELECT ` + positionColumns + ` FROM positions WHERE position_id = $1`

	row := s.pool.QueryRow(ctx, query, positionID)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("get position by id: %w", err)
	}
	if err := ledger.ValidatePosition(p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetOpen retrieves all non-terminal positions, ordered by opened_at ASC.
func (s *PositionStore) GetOpen(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status NOT IN ('CLOSED', 'FAILED')
		ORDER BY opened_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get open positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetByMint retrieves all positions for a mint, ordered by opened_at ASC.
func (s *PositionStore) GetByMint(ctx context.Context, mint string) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE mint = $1
		ORDER BY opened_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get positions by mint: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

// GetClosedSince retrieves terminal positions closed at or after sinceMs.
func (s *PositionStore) GetClosedSince(ctx context.Context, sinceMs int64) ([]*domain.Position, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM positions
		WHERE status IN ('CLOSED', 'FAILED') AND closed_at >= $1
		ORDER BY closed_at ASC, position_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("get closed positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

func positionArgs(p *domain.Position) []any {
	return []any{
		p.ID, p.Mint, p.Symbol, p.Source, p.Tier,
		p.Status, p.OpenedAt, p.ClosedAt,
		p.EntryPrice, p.EntrySize, p.RemainingSize, p.RealizedPnL,
		p.TakeProfits, p.StopLossPrice, p.TrailingWatermark, p.TrailingStopPct,
		p.StopFired, p.CloseReason, p.UpdatedAt,
	}
}

// scanPosition scans a single row into a Position.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position

	err := row.Scan(
		&p.ID, &p.Mint, &p.Symbol, &p.Source, &p.Tier,
		&p.Status, &p.OpenedAt, &p.ClosedAt,
		&p.EntryPrice, &p.EntrySize, &p.RemainingSize, &p.RealizedPnL,
		&p.TakeProfits, &p.StopLossPrice, &p.TrailingWatermark, &p.TrailingStopPct,
		&p.StopFired, &p.CloseReason, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// scanPositions scans multiple rows into a slice of Position.
func scanPositions(rows pgx.Rows) ([]*domain.Position, error) {
	var positions []*domain.Position

	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		if err := ledger.ValidatePosition(p); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}

	return positions, nil
}
