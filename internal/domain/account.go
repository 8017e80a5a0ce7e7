package domain

// AccountState is the engine-owned view of the trading wallet.
// Invariant: OpenExposure never exceeds the configured max wallet exposure
// fraction of Balance; checked after every entry.
type AccountState struct {
	Balance      float64 // available base-currency (SOL) balance
	OpenExposure float64 // sum of exposure across open positions
}

// Headroom returns the remaining exposure budget given a max exposure
// fraction. Never negative.
func (a AccountState) Headroom(maxExposureFraction float64) float64 {
	h := maxExposureFraction*a.Balance - a.OpenExposure
	if h < 0 {
		return 0
	}
	return h
}

// DailyCounters tracks per-day trade activity for circuit breaking.
// Owned by the execution engine; reset at the day boundary.
// ConsecutiveErrors resets to zero on any successful trade.
type DailyCounters struct {
	Day               string // YYYY-MM-DD in UTC
	TradeCount        int
	RealizedLoss      float64 // absolute sum of realized losses
	ConsecutiveErrors int
	LastErrorAt       int64 // Unix timestamp in milliseconds, 0 if none
}
