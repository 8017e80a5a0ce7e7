package domain

// TradeSide is the direction of a requested swap.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// TradeIntent is a requested swap, created and consumed within a single
// execution attempt. IntentID doubles as the idempotency key: a retried
// submission reuses the same key so the gateway can deduplicate.
type TradeIntent struct {
	IntentID   string
	PositionID string
	Side       TradeSide
	InputMint  string
	OutputMint string
	Amount     float64 // UI units of the input mint

	MaxSlippageBps    int
	MaxPriceImpactPct float64
}
