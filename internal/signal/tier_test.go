package signal

import (
	"testing"

	"memetrader/internal/config"
	"memetrader/internal/domain"
)

func testThresholds() []config.TierThreshold {
	return []config.TierThreshold{
		{Tier: domain.Tier10000x, MaxMcapUSD: 50_000},
		{Tier: domain.Tier1000x, MaxMcapUSD: 500_000},
		{Tier: domain.Tier100x, MaxMcapUSD: 5_000_000},
		{Tier: domain.Tier50x, MaxMcapUSD: 20_000_000},
	}
}

func TestAssignTier(t *testing.T) {
	tests := []struct {
		name     string
		priceUSD float64
		supply   float64
		expected domain.PotentialTier
	}{
		{"tiny cap", 0.00001, 1_000_000_000, domain.Tier10000x}, // 10k mcap
		{"small cap", 0.0001, 1_000_000_000, domain.Tier1000x},  // 100k mcap
		{"mid cap", 0.001, 1_000_000_000, domain.Tier100x},      // 1M mcap
		{"large cap", 0.01, 1_000_000_000, domain.Tier50x},      // 10M mcap
		{"above all thresholds", 1, 1_000_000_000, domain.Tier50x},
		{"unknown cap", 0, 0, domain.Tier50x},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := &domain.Opportunity{PriceUSD: tt.priceUSD, SupplyUI: tt.supply}
			if got := AssignTier(opp, testThresholds()); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestAssignTier_NoThresholds(t *testing.T) {
	opp := &domain.Opportunity{PriceUSD: 0.00001, SupplyUI: 1_000_000_000}
	if got := AssignTier(opp, nil); got != domain.Tier50x {
		t.Errorf("expected fallback tier, got %s", got)
	}
}
