package sizing

import (
	"testing"

	"memetrader/internal/config"
	"memetrader/internal/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		InitialInvestment: 20,
		MaxPositionSize:   100,
		MinTradeSize:      0.5,
		MaxWalletExposure: 0.15,
	}
}

func TestSize_TierScaling(t *testing.T) {
	snapshot := domain.AccountState{Balance: 10_000}
	cfg := testConfig()

	tests := []struct {
		tier     domain.PotentialTier
		expected float64
	}{
		{domain.Tier10000x, 20},
		{domain.Tier1000x, 15},
		{domain.Tier100x, 10},
		{domain.Tier50x, 5},
	}

	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			if got := Size(tt.tier, snapshot, cfg); got != tt.expected {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

// Headroom caps the size: balance 1000 with 15% exposure cap allows 150 in
// open positions; with 140 already committed only 10 remains, so the base
// size of 20 is cut to 10.
func TestSize_CappedByHeadroom(t *testing.T) {
	snapshot := domain.AccountState{Balance: 1000, OpenExposure: 140}

	if got := Size(domain.Tier10000x, snapshot, testConfig()); got != 10 {
		t.Errorf("expected 10, got %f", got)
	}
}

func TestSize_CappedByMaxPositionSize(t *testing.T) {
	cfg := testConfig()
	cfg.InitialInvestment = 500
	snapshot := domain.AccountState{Balance: 100_000}

	if got := Size(domain.Tier10000x, snapshot, cfg); got != 100 {
		t.Errorf("expected max position size 100, got %f", got)
	}
}

func TestSize_BelowMinimumReturnsZero(t *testing.T) {
	// Headroom of 0.1 is below the 0.5 minimum trade size
	snapshot := domain.AccountState{Balance: 1000, OpenExposure: 149.9}

	if got := Size(domain.Tier10000x, snapshot, testConfig()); got != 0 {
		t.Errorf("expected 0 below minimum, got %f", got)
	}
}

func TestSize_NoHeadroomReturnsZero(t *testing.T) {
	snapshot := domain.AccountState{Balance: 1000, OpenExposure: 200}

	if got := Size(domain.Tier10000x, snapshot, testConfig()); got != 0 {
		t.Errorf("expected 0 with exhausted headroom, got %f", got)
	}
}

func TestSize_Deterministic(t *testing.T) {
	snapshot := domain.AccountState{Balance: 1234.5, OpenExposure: 87.6}
	cfg := testConfig()

	first := Size(domain.Tier100x, snapshot, cfg)
	for i := 0; i < 10; i++ {
		if got := Size(domain.Tier100x, snapshot, cfg); got != first {
			t.Fatalf("size changed between calls: %f vs %f", first, got)
		}
	}
}
