package memory

import (
	"context"
	"sync"

	"memetrader/internal/domain"
	"memetrader/internal/ledger"
)

// CounterStore is an in-memory implementation of ledger.CounterStore.
type CounterStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DailyCounters // keyed by day (YYYY-MM-DD UTC)
}

// NewCounterStore creates a new in-memory counter store.
func NewCounterStore() *CounterStore {
	return &CounterStore{
		data: make(map[string]*domain.DailyCounters),
	}
}

var _ ledger.CounterStore = (*CounterStore)(nil)

// Get retrieves counters for a day key.
func (s *CounterStore) Get(_ context.Context, day string) (*domain.DailyCounters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[day]
	if !exists {
		return nil, ledger.ErrNotFound
	}

	cp := *c
	return &cp, nil
}

// Put inserts or replaces the counters for their day.
func (s *CounterStore) Put(_ context.Context, c *domain.DailyCounters) error {
	if c == nil || c.Day == "" {
		return ledger.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.data[c.Day] = &cp
	return nil
}
