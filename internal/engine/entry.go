package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"memetrader/internal/domain"
	"memetrader/internal/idhash"
	"memetrader/internal/market"
	"memetrader/internal/risk"
	"memetrader/internal/sizing"
)

const solMint = "So11111111111111111111111111111111111111112"

func defaultFillID() string { return uuid.NewString() }

// HandleOpportunity runs the entry pipeline for one scored opportunity:
// circuit breakers, sizing, quote, risk filter, then the entry swap. A
// rejection at any stage is not an error; only infrastructure failures
// propagate.
func (e *Engine) HandleOpportunity(ctx context.Context, opp *domain.Opportunity) error {
	now := e.nowMs()

	e.mu.Lock()
	e.rollDay(now)
	if breaker := e.checkBreakers(now); breaker != "" {
		e.mu.Unlock()
		e.logger.Printf("[engine] entry blocked by %s breaker (%s)", breaker, opp.Mint)
		if e.metrics != nil {
			e.metrics.BreakerTrips.WithLabelValues(breaker).Inc()
		}
		e.notify(ctx, Event{Type: "BREAKER", Detail: breaker})
		return nil
	}
	snapshot := e.account
	e.mu.Unlock()

	size := sizing.Size(opp.Tier, snapshot, e.cfg)
	if size <= 0 {
		e.logger.Printf("[engine] no viable size for %s (tier %s)", opp.Mint, opp.Tier)
		return nil
	}

	quote, err := e.quoteTimed(ctx, solMint, opp.Mint, size)
	if err != nil {
		return fmt.Errorf("entry quote: %w", err)
	}

	if result := risk.Evaluate(opp, quote, e.cfg, now); !result.Accepted {
		e.logger.Printf("[engine] rejected %s: %s (%s)", opp.Mint, result.Reason, result.Detail)
		if e.metrics != nil {
			e.metrics.OpportunitiesRejected.WithLabelValues(string(result.Reason)).Inc()
		}
		e.notify(ctx, Event{Type: "REJECTED", Detail: string(result.Reason)})
		return nil
	}

	return e.executeEntry(ctx, opp, quote, size)
}

// executeEntry opens the position. The position is persisted as Pending
// before the swap is submitted so a crash between submit and confirm leaves
// a record to reconcile against.
func (e *Engine) executeEntry(ctx context.Context, opp *domain.Opportunity, quote *domain.Quote, size float64) error {
	now := e.nowMs()
	positionID := idhash.ComputePositionID(opp.Mint, opp.Source, now)

	p := &domain.Position{
		ID:            positionID,
		Mint:          opp.Mint,
		Symbol:        opp.Symbol,
		Source:        opp.Source,
		Tier:          opp.Tier,
		Status:        domain.PositionPending,
		OpenedAt:      now,
		EntrySize:     size,
		RemainingSize: size,
		UpdatedAt:     now,
	}
	if err := e.ledger.Insert(ctx, p); err != nil {
		return fmt.Errorf("persist pending position: %w", err)
	}

	intent := domain.TradeIntent{
		IntentID:          idhash.ComputeIntentID(positionID, domain.FillEntry, 0),
		PositionID:        positionID,
		Side:              domain.SideBuy,
		InputMint:         solMint,
		OutputMint:        opp.Mint,
		Amount:            size,
		MaxSlippageBps:    e.cfg.MaxSlippageBps,
		MaxPriceImpactPct: e.cfg.MaxPriceImpactPct,
	}

	receipt, err := e.swapTimed(ctx, intent, quote.Route)
	if err != nil {
		receipt, err = e.reconcileSwap(ctx, err, intent, quote.Price)
	}
	if err != nil {
		return e.failEntry(ctx, p, err)
	}

	// Actual fill: receipt.InAmount SOL bought receipt.OutAmount tokens.
	entryPrice := receipt.InAmount / receipt.OutAmount

	e.mu.Lock()
	p.Status = domain.PositionOpen
	p.EntryPrice = entryPrice
	p.EntrySize = receipt.InAmount
	p.RemainingSize = receipt.InAmount
	p.UpdatedAt = e.nowMs()
	armTriggers(p, e.cfg)

	if err := e.ledger.Update(ctx, p); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("persist open position: %w", err)
	}

	fill := &domain.Fill{
		FillID:      e.newFillID(),
		PositionID:  p.ID,
		Kind:        domain.FillEntry,
		Price:       entryPrice,
		Size:        receipt.InAmount,
		TxSignature: receipt.TxSignature,
		Timestamp:   p.UpdatedAt,
	}
	if err := e.fills.Insert(ctx, fill); err != nil {
		e.logger.Printf("[engine] persist entry fill %s: %v", fill.FillID, err)
	}

	e.live[p.ID] = p
	e.account.Balance -= receipt.InAmount
	e.account.OpenExposure += receipt.InAmount
	e.counters.TradeCount++
	e.recordSuccess(ctx)
	e.persistCounters(ctx)
	e.updateGauges()
	e.startMonitor(ctx, p)
	published := clonePosition(p)
	e.mu.Unlock()

	e.logger.Printf("[engine] opened %s: %.4f SOL at %.10f (%s)",
		p.Mint, receipt.InAmount, entryPrice, p.Tier)
	if e.metrics != nil {
		e.metrics.EntriesExecuted.Inc()
	}
	e.notify(ctx, Event{Type: "ENTRY", Position: published})
	return nil
}

// failEntry records a terminal failed entry and counts the error.
func (e *Engine) failEntry(ctx context.Context, p *domain.Position, cause error) error {
	now := e.nowMs()

	e.mu.Lock()
	p.Status = domain.PositionFailed
	p.RemainingSize = 0
	p.CloseReason = domain.CloseReasonEntryFailed
	p.ClosedAt = &now
	p.UpdatedAt = now
	if err := e.ledger.Update(ctx, p); err != nil {
		e.logger.Printf("[engine] persist failed position %s: %v", p.ID, err)
	}
	e.recordError(ctx)
	e.updateGauges()
	e.mu.Unlock()

	e.logger.Printf("[engine] entry failed for %s: %v", p.Mint, cause)
	if e.metrics != nil {
		reason := "unknown"
		if se, ok := market.AsSwapError(cause); ok {
			reason = string(se.Reason)
		}
		e.metrics.EntriesFailed.WithLabelValues(reason).Inc()
	}
	e.notify(ctx, Event{Type: "ENTRY_FAILED", Position: clonePosition(p), Detail: cause.Error()})
	return nil
}

// reconcileSwap resolves a swap that failed locally. A timeout with a known
// transaction signature may still have landed on chain; the status endpoint
// is polled before the swap is declared dead. A confirmed transaction is
// treated as filled at the quoted price, expressed as output units per
// input unit for the swap's direction.
func (e *Engine) reconcileSwap(ctx context.Context, swapErr error, intent domain.TradeIntent, quotedPrice float64) (*domain.SwapReceipt, error) {
	se, ok := market.AsSwapError(swapErr)
	if !ok || se.Definitive() || se.TxSignature == "" {
		return nil, swapErr
	}

	for attempt := 0; attempt < e.reconcileAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.reconcileDelay):
			}
		}

		status, err := e.gateway.TransactionStatus(ctx, se.TxSignature)
		if err != nil {
			continue
		}
		switch status {
		case domain.TxStatusConfirmed:
			e.logger.Printf("[engine] reconciled %s as confirmed after local timeout", se.TxSignature)
			out := intent.Amount * quotedPrice
			return &domain.SwapReceipt{
				TxSignature: se.TxSignature,
				InAmount:    intent.Amount,
				OutAmount:   out,
				FillPrice:   out / intent.Amount,
				ConfirmedAt: e.nowMs(),
			}, nil
		case domain.TxStatusFailed:
			return nil, swapErr
		}
		// Unknown: keep polling
	}
	return nil, swapErr
}

// quoteTimed wraps Gateway.Quote with latency observation.
func (e *Engine) quoteTimed(ctx context.Context, inputMint, outputMint string, amount float64) (*domain.Quote, error) {
	start := time.Now()
	q, err := e.gateway.Quote(ctx, inputMint, outputMint, amount)
	if e.metrics != nil {
		e.metrics.GatewayCallLatency.WithLabelValues("quote").Observe(time.Since(start).Seconds())
	}
	return q, err
}

// swapTimed wraps Gateway.Swap with latency and failure observation.
func (e *Engine) swapTimed(ctx context.Context, intent domain.TradeIntent, route []byte) (*domain.SwapReceipt, error) {
	start := time.Now()
	receipt, err := e.gateway.Swap(ctx, intent, route)
	if e.metrics != nil {
		e.metrics.GatewayCallLatency.WithLabelValues("swap").Observe(time.Since(start).Seconds())
		if se, ok := market.AsSwapError(err); ok {
			e.metrics.SwapFailures.WithLabelValues(string(se.Reason)).Inc()
		}
	}
	return receipt, err
}
