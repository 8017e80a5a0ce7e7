package postgres

import (
	"context"
	"fmt"

	"memetrader/internal/domain"
	"memetrader/internal/ledger"
)

// OpportunityStore implements ledger.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *Pool
}

// NewOpportunityStore creates a new OpportunityStore.
func NewOpportunityStore(pool *Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

// Compile-time interface check.
var _ ledger.OpportunityStore = (*OpportunityStore)(nil)

// Insert adds an opportunity. Keyed by (mint, discovered_at).
func (s *OpportunityStore) Insert(ctx context.Context, o *domain.Opportunity) error {
	if o == nil || o.Mint == "" {
		return ledger.ErrInvalidInput
	}

	query := `
		INSERT INTO opportunities (
			mint, symbol, name, source, discovered_at, token_created_at,
			liquidity_usd, holders, price_usd, supply_ui,
			contract_verified, sell_sim_ok, sell_tax_pct, tier
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14
		)
	`

	_, err := s.pool.Exec(ctx, query,
		o.Mint, o.Symbol, o.Name, o.Source, o.DiscoveredAt, o.CreatedAt,
		o.LiquidityUSD, o.Holders, o.PriceUSD, o.SupplyUI,
		o.ContractVerified, o.SellSimOK, o.SellTaxPct, o.Tier,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ledger.ErrDuplicateKey
		}
		return fmt.Errorf("insert opportunity: %w", err)
	}
	return nil
}

// Recent retrieves the most recent opportunities, newest first.
func (s *OpportunityStore) Recent(ctx context.Context, limit int) ([]*domain.Opportunity, error) {
	query := `
		SELECT
			mint, symbol, name, source, discovered_at, token_created_at,
			liquidity_usd, holders, price_usd, supply_ui,
			contract_verified, sell_sim_ok, sell_tax_pct, tier
		FROM opportunities
		ORDER BY discovered_at DESC, mint ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent opportunities: %w", err)
	}
	defer rows.Close()

	var result []*domain.Opportunity
	for rows.Next() {
		var o domain.Opportunity
		err := rows.Scan(
			&o.Mint, &o.Symbol, &o.Name, &o.Source, &o.DiscoveredAt, &o.CreatedAt,
			&o.LiquidityUSD, &o.Holders, &o.PriceUSD, &o.SupplyUI,
			&o.ContractVerified, &o.SellSimOK, &o.SellTaxPct, &o.Tier,
		)
		if err != nil {
			return nil, fmt.Errorf("scan opportunity row: %w", err)
		}
		result = append(result, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate opportunity rows: %w", err)
	}

	return result, nil
}
