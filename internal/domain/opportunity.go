package domain

// Source identifies where an opportunity signal came from.
type Source string

const (
	SourceDEXListing Source = "DEX_LISTING"
	SourceTwitter    Source = "TWITTER"
	SourceReddit     Source = "REDDIT"
	SourceTelegram   Source = "TELEGRAM"
	SourceDiscord    Source = "DISCORD"
)

// PotentialTier is the estimated profit-potential bucket assigned by the
// signal aggregator. Thresholds are configuration policy, not code.
type PotentialTier string

const (
	Tier10000x PotentialTier = "TIER_10000X"
	Tier1000x  PotentialTier = "TIER_1000X"
	Tier100x   PotentialTier = "TIER_100X"
	Tier50x    PotentialTier = "TIER_50X"
)

// Opportunity is a scored candidate token produced by the signal aggregator.
// Immutable once scored; the risk filter either accepts or rejects it.
type Opportunity struct {
	Mint         string // token mint address (base58)
	Symbol       string
	Name         string
	Source       Source
	DiscoveredAt int64 // Unix timestamp in milliseconds
	CreatedAt    int64 // token creation timestamp (ms), 0 if unknown

	// Market snapshot at scoring time.
	LiquidityUSD float64
	Holders      int
	PriceUSD     float64
	SupplyUI     float64 // circulating supply in UI units

	// Contract safety inputs collected by the scanner. The risk filter
	// treats them as facts; it never re-runs the checks itself.
	ContractVerified bool
	SellSimOK        bool    // sell-simulation completed without revert
	SellTaxPct       float64 // observed sell tax, percent

	Tier PotentialTier
}

// AgeMs returns the token age relative to now (ms). Returns 0 when the
// creation timestamp is unknown.
func (o *Opportunity) AgeMs(nowMs int64) int64 {
	if o.CreatedAt == 0 {
		return 0
	}
	return nowMs - o.CreatedAt
}
