package signal

import (
	"memetrader/internal/config"
	"memetrader/internal/domain"
)

// MarketCapUSD estimates a token's market cap from its scored snapshot.
func MarketCapUSD(o *domain.Opportunity) float64 {
	if o.PriceUSD <= 0 || o.SupplyUI <= 0 {
		return 0
	}
	return o.PriceUSD * o.SupplyUI
}

// AssignTier buckets an opportunity by market-cap headroom: the smaller the
// cap, the larger the assigned upside tier. Thresholds come from config.
// Falls back to the lowest tier when the cap is unknown or above every
// threshold.
func AssignTier(o *domain.Opportunity, thresholds []config.TierThreshold) domain.PotentialTier {
	if len(thresholds) == 0 {
		return domain.Tier50x
	}

	mcap := MarketCapUSD(o)
	if mcap > 0 {
		for _, t := range thresholds {
			if mcap < t.MaxMcapUSD {
				return t.Tier
			}
		}
	}
	return thresholds[len(thresholds)-1].Tier
}
