// Package ledger defines the durable record of positions, fills, and daily
// counters. The execution engine is the only writer; readers get copies.
package ledger

import (
	"context"

	"memetrader/internal/domain"
)

// PositionStore provides access to positions storage.
type PositionStore interface {
	// Insert adds a new position. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, p *domain.Position) error

	// Update replaces the stored position. Returns ErrNotFound if the ID
	// does not exist.
	Update(ctx context.Context, p *domain.Position) error

	// GetByID retrieves a position. Returns ErrNotFound if not exists,
	// ErrCorruptState if the stored record is internally inconsistent.
	GetByID(ctx context.Context, positionID string) (*domain.Position, error)

	// GetOpen retrieves all non-terminal positions, ordered by opened_at ASC.
	GetOpen(ctx context.Context) ([]*domain.Position, error)

	// GetByMint retrieves all positions for a mint, ordered by opened_at ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.Position, error)

	// GetClosedSince retrieves terminal positions closed at or after the
	// given timestamp (ms), ordered by closed_at ASC.
	GetClosedSince(ctx context.Context, sinceMs int64) ([]*domain.Position, error)
}

// FillStore provides access to confirmed fills. Append-only.
type FillStore interface {
	// Insert adds a new fill. Returns ErrDuplicateKey if fill_id exists.
	Insert(ctx context.Context, f *domain.Fill) error

	// GetByPositionID retrieves all fills for a position, ordered by
	// timestamp ASC.
	GetByPositionID(ctx context.Context, positionID string) ([]*domain.Fill, error)
}

// CounterStore persists per-day trading counters.
type CounterStore interface {
	// Get retrieves counters for a day key (YYYY-MM-DD UTC). Returns
	// ErrNotFound if the day has no record yet.
	Get(ctx context.Context, day string) (*domain.DailyCounters, error)

	// Put inserts or replaces the counters for their day.
	Put(ctx context.Context, c *domain.DailyCounters) error
}

// OpportunityStore keeps recently scored opportunities for the dashboard.
type OpportunityStore interface {
	// Insert adds an opportunity. Returns ErrDuplicateKey when the same
	// mint was already recorded for the same discovery timestamp.
	Insert(ctx context.Context, o *domain.Opportunity) error

	// Recent retrieves the most recent opportunities, newest first,
	// capped at limit.
	Recent(ctx context.Context, limit int) ([]*domain.Opportunity, error)
}

// ValidatePosition checks a position record for internal consistency.
// Shared by implementations so corrupt state is detected identically
// regardless of backend.
func ValidatePosition(p *domain.Position) error {
	if p == nil || p.ID == "" {
		return ErrInvalidInput
	}
	if p.RemainingSize < 0 || p.RemainingSize > p.EntrySize+1e-9 {
		return ErrCorruptState
	}
	if p.Terminal() && p.Status == domain.PositionClosed && p.RemainingSize > 1e-9 {
		return ErrCorruptState
	}
	switch p.Status {
	case domain.PositionPending, domain.PositionOpen, domain.PositionPartiallyClosed,
		domain.PositionClosed, domain.PositionFailed:
	default:
		return ErrCorruptState
	}
	return nil
}
