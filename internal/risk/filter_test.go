package risk

import (
	"testing"
	"time"

	"memetrader/internal/config"
	"memetrader/internal/domain"
)

const nowMs = int64(1700000000000)

func testConfig() *config.Config {
	return &config.Config{
		MinLiquidityUSD:   50_000,
		MinHolders:        100,
		MaxTokenAge:       600 * time.Second,
		MaxPriceImpactPct: 2.0,
		MaxSellTaxPct:     10.0,
		MinLiquidityRatio: 10.0,
	}
}

// eligibleOpp passes every check against testConfig.
func eligibleOpp() *domain.Opportunity {
	return &domain.Opportunity{
		Mint:             "mint1",
		LiquidityUSD:     75_000,
		Holders:          250,
		CreatedAt:        nowMs - 120_000, // 2 minutes old
		ContractVerified: true,
		SellSimOK:        true,
		SellTaxPct:       2.0,
		PriceUSD:         0.00002,
	}
}

func goodQuote() *domain.Quote {
	return &domain.Quote{
		InAmount:       0.1,
		OutAmount:      5000, // 5000 tokens * 0.00002 USD = 0.1 USD position
		PriceImpactPct: 0.5,
	}
}

func TestEvaluate_Accepts(t *testing.T) {
	result := Evaluate(eligibleOpp(), goodQuote(), testConfig(), nowMs)
	if !result.Accepted {
		t.Fatalf("expected accept, got %s (%s)", result.Reason, result.Detail)
	}
	if result.Reason != "" {
		t.Errorf("accepted result must carry no reason, got %s", result.Reason)
	}
}

func TestEvaluate_RejectsFirstFailure(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(o *domain.Opportunity, q *domain.Quote)
		expected RejectReason
	}{
		{
			"low liquidity",
			func(o *domain.Opportunity, q *domain.Quote) { o.LiquidityUSD = 5_000 },
			ReasonLiquidityTooLow,
		},
		{
			"few holders",
			func(o *domain.Opportunity, q *domain.Quote) { o.Holders = 12 },
			ReasonHoldersTooFew,
		},
		{
			"too old",
			func(o *domain.Opportunity, q *domain.Quote) { o.CreatedAt = nowMs - 3600_000 },
			ReasonTokenTooOld,
		},
		{
			"unverified contract",
			func(o *domain.Opportunity, q *domain.Quote) { o.ContractVerified = false },
			ReasonContractUnverified,
		},
		{
			"honeypot",
			func(o *domain.Opportunity, q *domain.Quote) { o.SellSimOK = false },
			ReasonHoneypot,
		},
		{
			"high sell tax",
			func(o *domain.Opportunity, q *domain.Quote) { o.SellTaxPct = 25 },
			ReasonSellTaxTooHigh,
		},
		{
			"high price impact",
			func(o *domain.Opportunity, q *domain.Quote) { q.PriceImpactPct = 5.5 },
			ReasonPriceImpactTooHigh,
		},
		{
			"thin liquidity for size",
			func(o *domain.Opportunity, q *domain.Quote) {
				// 500M tokens at 0.00002 USD is a 10k USD position
				// against 75k liquidity: ratio 7.5
				q.OutAmount = 500_000_000
			},
			ReasonLiquidityRatioLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp, quote := eligibleOpp(), goodQuote()
			tt.mutate(opp, quote)

			result := Evaluate(opp, quote, testConfig(), nowMs)
			if result.Accepted {
				t.Fatal("expected rejection")
			}
			if result.Reason != tt.expected {
				t.Errorf("expected reason %s, got %s", tt.expected, result.Reason)
			}
			if result.Detail == "" {
				t.Error("expected detail on rejection")
			}
		})
	}
}

// Insufficient liquidity rejects no matter how good everything else looks.
func TestEvaluate_LiquidityDominates(t *testing.T) {
	opp := eligibleOpp()
	opp.LiquidityUSD = 5_000
	opp.Holders = 100_000
	opp.SellTaxPct = 0

	result := Evaluate(opp, goodQuote(), testConfig(), nowMs)
	if result.Accepted {
		t.Fatal("expected rejection")
	}
	if result.Reason != ReasonLiquidityTooLow {
		t.Errorf("expected liquidity-too-low, got %s", result.Reason)
	}
}

// Unknown creation time skips the age check rather than rejecting.
func TestEvaluate_UnknownAgeAccepted(t *testing.T) {
	opp := eligibleOpp()
	opp.CreatedAt = 0

	result := Evaluate(opp, goodQuote(), testConfig(), nowMs)
	if !result.Accepted {
		t.Errorf("expected accept with unknown age, got %s", result.Reason)
	}
}

// A nil quote skips the quote-derived checks only.
func TestEvaluate_NilQuote(t *testing.T) {
	result := Evaluate(eligibleOpp(), nil, testConfig(), nowMs)
	if !result.Accepted {
		t.Errorf("expected accept without quote, got %s", result.Reason)
	}
}
