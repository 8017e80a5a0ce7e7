package memory

import (
	"context"
	"sort"
	"sync"

	"memetrader/internal/domain"
	"memetrader/internal/ledger"
)

// FillStore is an in-memory implementation of ledger.FillStore.
type FillStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Fill // keyed by fill ID
}

// NewFillStore creates a new in-memory fill store.
func NewFillStore() *FillStore {
	return &FillStore{
		data: make(map[string]*domain.Fill),
	}
}

var _ ledger.FillStore = (*FillStore)(nil)

// Insert adds a new fill. Returns ErrDuplicateKey if fill_id exists.
func (s *FillStore) Insert(_ context.Context, f *domain.Fill) error {
	if f == nil || f.FillID == "" || f.PositionID == "" {
		return ledger.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[f.FillID]; exists {
		return ledger.ErrDuplicateKey
	}

	cp := *f
	s.data[f.FillID] = &cp
	return nil
}

// GetByPositionID retrieves all fills for a position, ordered by timestamp ASC.
func (s *FillStore) GetByPositionID(_ context.Context, positionID string) ([]*domain.Fill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Fill
	for _, f := range s.data {
		if f.PositionID == positionID {
			cp := *f
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].FillID < result[j].FillID
	})

	return result, nil
}
