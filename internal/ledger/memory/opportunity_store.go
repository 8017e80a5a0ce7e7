package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"memetrader/internal/domain"
	"memetrader/internal/ledger"
)

// OpportunityStore is an in-memory implementation of ledger.OpportunityStore.
type OpportunityStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Opportunity // keyed by mint|discovered_at
}

// NewOpportunityStore creates a new in-memory opportunity store.
func NewOpportunityStore() *OpportunityStore {
	return &OpportunityStore{
		data: make(map[string]*domain.Opportunity),
	}
}

var _ ledger.OpportunityStore = (*OpportunityStore)(nil)

func oppKey(o *domain.Opportunity) string {
	return fmt.Sprintf("%s|%d", o.Mint, o.DiscoveredAt)
}

// Insert adds an opportunity.
func (s *OpportunityStore) Insert(_ context.Context, o *domain.Opportunity) error {
	if o == nil || o.Mint == "" {
		return ledger.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := oppKey(o)
	if _, exists := s.data[key]; exists {
		return ledger.ErrDuplicateKey
	}

	cp := *o
	s.data[key] = &cp
	return nil
}

// Recent retrieves the most recent opportunities, newest first.
func (s *OpportunityStore) Recent(_ context.Context, limit int) ([]*domain.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Opportunity, 0, len(s.data))
	for _, o := range s.data {
		cp := *o
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DiscoveredAt != result[j].DiscoveredAt {
			return result[i].DiscoveredAt > result[j].DiscoveredAt
		}
		return result[i].Mint < result[j].Mint
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}
