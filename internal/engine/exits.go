package engine

import (
	"context"
	"fmt"

	"memetrader/internal/domain"
	"memetrader/internal/idhash"
	"memetrader/internal/ledger"
)

// OnPrice processes one price observation for a position: it advances the
// trailing watermark, persists trigger-state changes, and executes any exits
// the crossing demands. Calls for the same position are serialized by the
// position's monitor goroutine; a concurrent force-close is excluded by the
// in-flight guard.
func (e *Engine) OnPrice(ctx context.Context, positionID string, price float64) {
	if price <= 0 {
		return
	}
	now := e.nowMs()

	e.mu.Lock()
	p, ok := e.live[positionID]
	if !ok || e.executing[positionID] {
		e.mu.Unlock()
		return
	}

	prevWatermark := p.TrailingWatermark
	actions := evalTriggers(p, price)

	// Fire-once: a take-profit level is consumed the moment it triggers,
	// whatever the swap outcome. The stop triggers still cover the
	// remainder if the sell fails.
	for _, a := range actions {
		if a.kind == domain.FillTakeProfit {
			p.TakeProfits[a.tpIndex].Consumed = true
		}
	}
	if p.TrailingWatermark != prevWatermark || len(actions) > 0 {
		p.UpdatedAt = now
		if err := e.ledger.Update(ctx, p); err != nil {
			e.logger.Printf("[engine] persist trigger state %s: %v", p.ID, err)
		}
	}
	if len(actions) > 0 {
		e.executing[positionID] = true
	}
	mint := p.Mint
	e.mu.Unlock()

	if e.history != nil {
		if err := e.history.RecordPrice(ctx, mint, price, now); err != nil {
			e.logger.Printf("[engine] record price %s: %v", mint, err)
		}
	}

	if len(actions) == 0 {
		return
	}
	defer func() {
		e.mu.Lock()
		delete(e.executing, positionID)
		e.mu.Unlock()
	}()

	for _, a := range actions {
		if err := e.executeExit(ctx, p, a, price); err != nil {
			e.logger.Printf("[engine] exit %s on %s: %v", a.kind, p.Mint, err)
			return
		}
	}
}

// ForceClose sells a position's whole remainder at market. Used by the
// control surface and shutdown paths.
func (e *Engine) ForceClose(ctx context.Context, positionID string) error {
	e.mu.Lock()
	p, ok := e.live[positionID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("position %s is not open: %w", positionID, ledger.ErrNotFound)
	}
	if e.executing[positionID] {
		e.mu.Unlock()
		return fmt.Errorf("position %s has an execution in flight", positionID)
	}
	e.executing[positionID] = true
	action := exitAction{kind: domain.FillForceClose, size: p.RemainingSize}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.executing, positionID)
		e.mu.Unlock()
	}()

	quote, err := e.quoteTimed(ctx, p.Mint, solMint, action.size/p.EntryPrice)
	price := p.EntryPrice
	if err == nil && quote.Price > 0 {
		price = quote.Price
	}
	return e.executeExit(ctx, p, action, price)
}

// executeExit sells action.size base-currency units of the position and
// applies the outcome: ledger update, fill record, account and counter
// changes, close transition when the remainder is gone.
func (e *Engine) executeExit(ctx context.Context, p *domain.Position, a exitAction, price float64) error {
	// Entry committed size SOL for size/entryPrice tokens; selling a slice
	// converts back through the entry price.
	tokens := a.size / p.EntryPrice

	intent := domain.TradeIntent{
		IntentID:          idhash.ComputeIntentID(p.ID, a.kind, a.tpIndex),
		PositionID:        p.ID,
		Side:              domain.SideSell,
		InputMint:         p.Mint,
		OutputMint:        solMint,
		Amount:            tokens,
		MaxSlippageBps:    e.cfg.MaxSlippageBps,
		MaxPriceImpactPct: e.cfg.MaxPriceImpactPct,
	}

	receipt, err := e.swapTimed(ctx, intent, nil)
	if err != nil {
		receipt, err = e.reconcileSwap(ctx, err, intent, price)
	}
	if err != nil {
		e.mu.Lock()
		e.recordError(ctx)
		e.mu.Unlock()
		e.notify(ctx, Event{Type: "EXIT_FAILED", Position: clonePosition(p), Detail: err.Error()})
		return err
	}

	now := e.nowMs()
	proceeds := receipt.OutAmount
	pnl := proceeds - a.size

	e.mu.Lock()
	p.RemainingSize -= a.size
	if p.RemainingSize < sizeEpsilon {
		p.RemainingSize = 0
	}
	p.RealizedPnL += pnl
	if a.kind == domain.FillStopLoss || a.kind == domain.FillTrailingStop {
		p.StopFired = true
	}
	if p.RemainingSize == 0 {
		p.Status = domain.PositionClosed
		p.CloseReason = closeReasonFor(a.kind)
		p.ClosedAt = &now
	} else {
		p.Status = domain.PositionPartiallyClosed
	}
	p.UpdatedAt = now

	if err := e.ledger.Update(ctx, p); err != nil {
		e.logger.Printf("[engine] persist exit %s: %v", p.ID, err)
	}

	fill := &domain.Fill{
		FillID:      e.newFillID(),
		PositionID:  p.ID,
		Kind:        a.kind,
		Price:       receipt.FillPrice,
		Size:        a.size,
		TxSignature: receipt.TxSignature,
		Timestamp:   now,
	}
	if err := e.fills.Insert(ctx, fill); err != nil {
		e.logger.Printf("[engine] persist exit fill %s: %v", fill.FillID, err)
	}

	e.account.Balance += proceeds
	e.account.OpenExposure -= a.size
	if e.account.OpenExposure < 0 {
		e.account.OpenExposure = 0
	}
	if pnl < 0 {
		e.counters.RealizedLoss += -pnl
	}
	e.recordSuccess(ctx)
	e.persistCounters(ctx)
	if p.Terminal() {
		delete(e.live, p.ID)
	}
	e.updateGauges()
	published := clonePosition(p)
	realized := p.RealizedPnL
	e.mu.Unlock()

	e.logger.Printf("[engine] %s sold %.4f SOL of %s at %.10f, pnl %.6f (remaining %.4f)",
		a.kind, a.size, p.Mint, receipt.FillPrice, pnl, published.RemainingSize)
	if e.metrics != nil {
		e.metrics.ExitsExecuted.WithLabelValues(string(a.kind)).Inc()
		if pnl >= 0 {
			e.metrics.RealizedGain.Add(pnl)
		} else {
			e.metrics.RealizedLoss.Add(-pnl)
		}
	}
	if e.history != nil {
		if err := e.history.RecordPnL(ctx, p.ID, p.Mint, realized, now); err != nil {
			e.logger.Printf("[engine] record pnl %s: %v", p.ID, err)
		}
	}
	e.notify(ctx, Event{Type: "EXIT", Position: published, Detail: closeReasonFor(a.kind)})
	return nil
}
