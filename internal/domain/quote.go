package domain

// Quote is a normalized swap quote from a DEX aggregator.
type Quote struct {
	InputMint      string
	OutputMint     string
	InAmount       float64 // UI units of the input mint
	OutAmount      float64 // UI units of the output mint
	Price          float64 // output per input unit
	PriceImpactPct float64
	LiquidityUSD   float64
	Route          []byte // opaque aggregator route, passed back on swap
	FetchedAt      int64  // Unix timestamp in milliseconds
}

// SwapReceipt is the confirmed outcome of a submitted swap.
type SwapReceipt struct {
	TxSignature string
	InAmount    float64 // UI units actually spent
	OutAmount   float64 // UI units actually received
	FillPrice   float64 // OutAmount / InAmount
	ConfirmedAt int64   // Unix timestamp in milliseconds
}

// TxStatus is the on-chain outcome of a broadcast transaction, used to
// reconcile swaps abandoned on local timeout.
type TxStatus string

const (
	TxStatusConfirmed TxStatus = "CONFIRMED"
	TxStatusFailed    TxStatus = "FAILED"
	TxStatusUnknown   TxStatus = "UNKNOWN" // not found / still in flight
)

// PriceUpdate is one price observation for a mint, delivered by the
// market data gateway's price feed.
type PriceUpdate struct {
	Mint        string
	Price       float64 // base-currency (SOL) per token
	TimestampMs int64
}
