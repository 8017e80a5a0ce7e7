package postgres

import (
	"context"
	"fmt"

	"memetrader/internal/domain"
	"memetrader/internal/ledger"
)

// FillStore implements ledger.FillStore using PostgreSQL. Append-only.
type FillStore struct {
	pool *Pool
}

// NewFillStore creates a new FillStore.
func NewFillStore(pool *Pool) *FillStore {
	return &FillStore{pool: pool}
}

// Compile-time interface check.
var _ ledger.FillStore = (*FillStore)(nil)

// Insert adds a new fill. Returns ErrDuplicateKey if fill_id exists.
func (s *FillStore) Insert(ctx context.Context, f *domain.Fill) error {
	if f == nil || f.FillID == "" || f.PositionID == "" {
		return ledger.ErrInvalidInput
	}

	query := `
		INSERT INTO fills (
			fill_id, position_id, kind, price, size, tx_signature, ts
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		f.FillID, f.PositionID, f.Kind, f.Price, f.Size, f.TxSignature, f.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ledger.ErrDuplicateKey
		}
		return fmt.Errorf("insert fill: %w", err)
	}
	return nil
}

// GetByPositionID retrieves all fills for a position, ordered by timestamp ASC.
func (s *FillStore) GetByPositionID(ctx context.Context, positionID string) ([]*domain.Fill, error) {
	query := `
		SELECT fill_id, position_id, kind, price, size, tx_signature, ts
		FROM fills
		WHERE position_id = $1
		ORDER BY ts ASC, fill_id ASC
	`

	rows, err := s.pool.Query(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("get fills by position id: %w", err)
	}
	defer rows.Close()

	var fills []*domain.Fill
	for rows.Next() {
		var f domain.Fill
		if err := rows.Scan(&f.FillID, &f.PositionID, &f.Kind, &f.Price, &f.Size, &f.TxSignature, &f.Timestamp); err != nil {
			return nil, fmt.Errorf("scan fill row: %w", err)
		}
		fills = append(fills, &f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fill rows: %w", err)
	}

	return fills, nil
}
