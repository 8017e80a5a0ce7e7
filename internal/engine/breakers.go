package engine

import (
	"time"

	"memetrader/internal/domain"
)

// Breaker names reported when an entry is blocked. Breakers gate new
// entries only; exits always execute.
const (
	BreakerConcurrentTrades = "max-concurrent-trades"
	BreakerDailyTrades      = "max-daily-trades"
	BreakerDailyLoss        = "max-daily-loss"
	BreakerErrorSuspension  = "error-suspension"
)

// dayKey formats a timestamp as the UTC day the counters are bucketed by.
func dayKey(nowMs int64) string {
	return time.UnixMilli(nowMs).UTC().Format("2006-01-02")
}

// checkBreakers returns the name of the first tripped breaker, or "" when
// entries are allowed. Caller holds the engine mutex.
func (e *Engine) checkBreakers(nowMs int64) string {
	if len(e.live) >= e.cfg.MaxConcurrentTrades {
		return BreakerConcurrentTrades
	}
	if e.counters.TradeCount >= e.cfg.MaxDailyTrades {
		return BreakerDailyTrades
	}
	if e.counters.RealizedLoss >= e.cfg.MaxDailyLoss*e.account.Balance {
		return BreakerDailyLoss
	}
	if e.counters.ConsecutiveErrors >= e.cfg.MaxErrors {
		suspendedUntil := e.counters.LastErrorAt + e.cfg.ErrorTimeout.Milliseconds()
		if nowMs < suspendedUntil {
			return BreakerErrorSuspension
		}
		// Suspension served; clear the streak so one new error does not
		// re-trip immediately.
		e.counters.ConsecutiveErrors = 0
	}
	return ""
}

// rollDay resets the daily counters when the UTC day changed since the last
// recorded activity. Caller holds the engine mutex.
func (e *Engine) rollDay(nowMs int64) {
	day := dayKey(nowMs)
	if e.counters.Day == day {
		return
	}
	e.counters = domain.DailyCounters{Day: day}
}
