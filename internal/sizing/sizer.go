// Package sizing turns an accepted opportunity into a position size in SOL.
// Deterministic: the same tier, account snapshot, and config always produce
// the same size.
package sizing

import (
	"memetrader/internal/config"
	"memetrader/internal/domain"
)

// tierMultiplier scales the base investment by expected upside. Smaller
// caps get the full base size; established tokens get a reduced stake.
func tierMultiplier(tier domain.PotentialTier) float64 {
	switch tier {
	case domain.Tier10000x:
		return 1.0
	case domain.Tier1000x:
		return 0.75
	case domain.Tier100x:
		return 0.5
	case domain.Tier50x:
		return 0.25
	default:
		return 0.25
	}
}

// Size computes the entry size in SOL for a tier given the current account
// snapshot. The size is the tier-scaled base investment, capped by the hard
// per-position limit and by remaining exposure headroom. Returns 0 when the
// capped size falls below the minimum viable trade.
func Size(tier domain.PotentialTier, snapshot domain.AccountState, cfg *config.Config) float64 {
	size := cfg.InitialInvestment * tierMultiplier(tier)

	if cfg.MaxPositionSize > 0 && size > cfg.MaxPositionSize {
		size = cfg.MaxPositionSize
	}

	if headroom := snapshot.Headroom(cfg.MaxWalletExposure); size > headroom {
		size = headroom
	}

	if size < cfg.MinTradeSize {
		return 0
	}
	return size
}
