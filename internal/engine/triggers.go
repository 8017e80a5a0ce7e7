package engine

import (
	"memetrader/internal/config"
	"memetrader/internal/domain"
)

// exitAction is one exit the trigger evaluation asks the engine to execute.
type exitAction struct {
	kind domain.FillKind
	// tpIndex identifies the take-profit level for FillTakeProfit actions.
	tpIndex int
	// size in base-currency units to sell.
	size float64
}

// armTriggers builds the exit trigger set for a fresh entry. Take-profit
// fractions apply to the original entry size; the trailing watermark starts
// at the entry price.
func armTriggers(p *domain.Position, cfg *config.Config) {
	p.TakeProfits = make([]domain.TakeProfitLevel, 0, len(cfg.TakeProfits))
	for _, tp := range cfg.TakeProfits {
		p.TakeProfits = append(p.TakeProfits, domain.TakeProfitLevel{
			TargetPrice: p.EntryPrice * (1 + tp.GainPct/100),
			Fraction:    tp.Fraction,
		})
	}
	p.StopLossPrice = p.EntryPrice * (1 - cfg.StopLossPct/100)
	p.TrailingWatermark = p.EntryPrice
	p.TrailingStopPct = cfg.TrailingStopPct / 100
}

// evalTriggers advances the trailing watermark and returns the exits the
// price crossing demands, in execution order. A stop (static or trailing)
// closes the whole remainder and suppresses take-profits; a rising price
// may cross several unconsumed take-profit levels at once.
//
// The watermark only moves up. The static stop and the trailing stop share
// the StopFired latch: whichever fires first voids the other.
func evalTriggers(p *domain.Position, price float64) []exitAction {
	if p.Terminal() || p.RemainingSize <= 0 {
		return nil
	}

	if price > p.TrailingWatermark {
		p.TrailingWatermark = price
	}

	if !p.StopFired {
		if price <= p.StopLossPrice {
			return []exitAction{{kind: domain.FillStopLoss, size: p.RemainingSize}}
		}
		if price <= p.TrailingStopPrice() {
			return []exitAction{{kind: domain.FillTrailingStop, size: p.RemainingSize}}
		}
	}

	var actions []exitAction
	remaining := p.RemainingSize
	for i := range p.TakeProfits {
		tp := &p.TakeProfits[i]
		if tp.Consumed || price < tp.TargetPrice {
			continue
		}
		size := tp.Fraction * p.EntrySize
		if size > remaining {
			size = remaining
		}
		if size <= 0 {
			continue
		}
		actions = append(actions, exitAction{kind: domain.FillTakeProfit, tpIndex: i, size: size})
		remaining -= size
	}
	return actions
}

// closeReasonFor maps a fill kind to the recorded close reason.
func closeReasonFor(kind domain.FillKind) string {
	switch kind {
	case domain.FillTakeProfit:
		return domain.CloseReasonTakeProfit
	case domain.FillStopLoss:
		return domain.CloseReasonStopLoss
	case domain.FillTrailingStop:
		return domain.CloseReasonTrailingStop
	case domain.FillForceClose:
		return domain.CloseReasonForceClose
	default:
		return string(kind)
	}
}
