package domain

// FillKind classifies the execution that produced a fill.
type FillKind string

const (
	FillEntry        FillKind = "ENTRY"
	FillTakeProfit   FillKind = "TAKE_PROFIT"
	FillStopLoss     FillKind = "STOP_LOSS"
	FillTrailingStop FillKind = "TRAILING_STOP"
	FillForceClose   FillKind = "FORCE_CLOSE"
)

// Fill is one confirmed swap execution attributed to a position.
type Fill struct {
	FillID      string // uuid
	PositionID  string
	Kind        FillKind
	Price       float64
	Size        float64 // base-currency units
	TxSignature string
	Timestamp   int64 // Unix timestamp in milliseconds
}
