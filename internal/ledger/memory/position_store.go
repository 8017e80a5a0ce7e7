package memory

import (
	"context"
	"sort"
	"sync"

	"memetrader/internal/domain"
	"memetrader/internal/ledger"
)

// PositionStore is an in-memory implementation of ledger.PositionStore.
type PositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Position // keyed by position ID
}

// NewPositionStore creates a new in-memory position store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		data: make(map[string]*domain.Position),
	}
}

var _ ledger.PositionStore = (*PositionStore)(nil)

// Insert adds a new position. Returns ErrDuplicateKey if the ID exists.
func (s *PositionStore) Insert(_ context.Context, p *domain.Position) error {
	if err := ledger.ValidatePosition(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; exists {
		return ledger.ErrDuplicateKey
	}

	s.data[p.ID] = clonePosition(p)
	return nil
}

// Update replaces the stored position. Returns ErrNotFound if absent.
func (s *PositionStore) Update(_ context.Context, p *domain.Position) error {
	if err := ledger.ValidatePosition(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; !exists {
		return ledger.ErrNotFound
	}

	s.data[p.ID] = clonePosition(p)
	return nil
}

// GetByID retrieves a position by ID.
func (s *PositionStore) GetByID(_ context.Context, positionID string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[positionID]
	if !exists {
		return nil, ledger.ErrNotFound
	}
	if err := ledger.ValidatePosition(p); err != nil {
		return nil, err
	}

	return clonePosition(p), nil
}

// GetOpen retrieves all non-terminal positions, ordered by opened_at ASC.
func (s *PositionStore) GetOpen(_ context.Context) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if !p.Terminal() {
			result = append(result, clonePosition(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].OpenedAt != result[j].OpenedAt {
			return result[i].OpenedAt < result[j].OpenedAt
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// GetByMint retrieves all positions for a mint, ordered by opened_at ASC.
func (s *PositionStore) GetByMint(_ context.Context, mint string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Mint == mint {
			result = append(result, clonePosition(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenedAt < result[j].OpenedAt
	})

	return result, nil
}

// GetClosedSince retrieves terminal positions closed at or after sinceMs.
func (s *PositionStore) GetClosedSince(_ context.Context, sinceMs int64) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Position
	for _, p := range s.data {
		if p.Terminal() && p.ClosedAt != nil && *p.ClosedAt >= sinceMs {
			result = append(result, clonePosition(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return *result[i].ClosedAt < *result[j].ClosedAt
	})

	return result, nil
}

// clonePosition deep-copies a position, including trigger and timestamp
// slices, so callers can never mutate stored state.
func clonePosition(p *domain.Position) *domain.Position {
	cp := *p
	if p.ClosedAt != nil {
		v := *p.ClosedAt
		cp.ClosedAt = &v
	}
	if p.TakeProfits != nil {
		cp.TakeProfits = make([]domain.TakeProfitLevel, len(p.TakeProfits))
		copy(cp.TakeProfits, p.TakeProfits)
	}
	return &cp
}
