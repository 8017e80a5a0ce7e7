package domain

// PositionStatus is the lifecycle state of a position.
// Pending → Open → PartiallyClosed (0..n) → Closed, with Failed reachable
// from Pending or Open on unrecoverable swap error.
type PositionStatus string

const (
	PositionPending         PositionStatus = "PENDING"
	PositionOpen            PositionStatus = "OPEN"
	PositionPartiallyClosed PositionStatus = "PARTIALLY_CLOSED"
	PositionClosed          PositionStatus = "CLOSED"
	PositionFailed          PositionStatus = "FAILED"
)

// Close reason codes recorded on terminal positions.
const (
	CloseReasonTakeProfit   = "TAKE_PROFIT"
	CloseReasonStopLoss     = "STOP_LOSS"
	CloseReasonTrailingStop = "TRAILING_STOP"
	CloseReasonForceClose   = "FORCE_CLOSE"
	CloseReasonEntryFailed  = "ENTRY_FAILED"
)

// TakeProfitLevel is one armed take-profit trigger. Fraction applies to the
// original entry size. Each level fires at most once.
type TakeProfitLevel struct {
	TargetPrice float64 `json:"target_price"`
	Fraction    float64 `json:"fraction"`
	Consumed    bool    `json:"consumed"`
}

// Position is an open or closed holding resulting from an executed entry.
// Owned exclusively by the execution engine and mutated only through engine
// operations; the ledger persists it verbatim.
type Position struct {
	ID     string // deterministic hash, see idhash.ComputePositionID
	Mint   string
	Symbol string
	Source Source
	Tier   PotentialTier

	Status   PositionStatus
	OpenedAt int64  // Unix timestamp in milliseconds
	ClosedAt *int64 // set when Status is CLOSED or FAILED

	// Entry fill. EntryPrice is the actual fill price, which may differ
	// from the quoted price within slippage tolerance.
	EntryPrice float64
	EntrySize  float64 // base-currency (SOL) units committed at entry

	RemainingSize float64
	RealizedPnL   float64

	// Armed exit triggers.
	TakeProfits       []TakeProfitLevel
	StopLossPrice     float64
	TrailingWatermark float64 // high-water price, never decreases
	TrailingStopPct   float64
	// StopFired marks that the static stop or the trailing stop already
	// closed the remainder; once one fires the other is void.
	StopFired bool

	CloseReason string

	UpdatedAt int64
}

// Exposure returns the base-currency exposure the position currently holds.
// Failed and closed positions hold none.
func (p *Position) Exposure() float64 {
	switch p.Status {
	case PositionOpen, PositionPartiallyClosed, PositionPending:
		return p.RemainingSize
	default:
		return 0
	}
}

// Terminal reports whether the position can no longer transition.
func (p *Position) Terminal() bool {
	return p.Status == PositionClosed || p.Status == PositionFailed
}

// TrailingStopPrice returns the effective trailing-stop trigger price.
// Monotonically non-decreasing because the watermark never decreases.
func (p *Position) TrailingStopPrice() float64 {
	return p.TrailingWatermark * (1 - p.TrailingStopPct)
}
