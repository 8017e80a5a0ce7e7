package engine

import (
	"context"
	"time"

	"memetrader/internal/domain"
)

// startMonitor ensures a price monitor goroutine runs for the position's
// mint. One goroutine per mint serves every live position on it, so two
// positions on the same token never race for the feed subscription.
// Without a price feed the engine runs entry-only; prices then arrive
// through OnPrice directly. Caller holds mu.
func (e *Engine) startMonitor(ctx context.Context, p *domain.Position) {
	if e.feed == nil {
		return
	}
	if e.watching[p.Mint] {
		return
	}
	e.watching[p.Mint] = true
	e.wg.Add(1)
	go e.monitor(ctx, p.Mint)
}

// monitor pipes price updates from the feed into OnPrice for every live
// position on the mint until none remain or the context is cancelled.
// Subscribe failures are retried with bounded backoff: a transient feed
// drop must never disarm a live position's exits.
func (e *Engine) monitor(ctx context.Context, mint string) {
	defer e.wg.Done()

	ch := e.subscribe(ctx, mint)
	if ch == nil {
		return
	}
	defer func() {
		if err := e.feed.Unsubscribe(mint); err != nil {
			e.logger.Printf("[engine] unsubscribe %s: %v", mint, err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			e.unwatch(mint)
			return
		case update, ok := <-ch:
			if !ok {
				e.unwatch(mint)
				return
			}
			for _, id := range e.liveOnMint(mint) {
				e.OnPrice(ctx, id, update.Price)
			}
			if !e.stillWatching(mint) {
				return
			}
		}
	}
}

// subscribe keeps trying until the feed accepts the subscription, the
// context ends, or every position on the mint has left the live set.
func (e *Engine) subscribe(ctx context.Context, mint string) <-chan domain.PriceUpdate {
	delay := e.subscribeDelay
	for {
		ch, err := e.feed.Subscribe(ctx, mint)
		if err == nil {
			return ch
		}
		e.logger.Printf("[engine] subscribe %s: %v, retrying in %v", mint, err, delay)

		select {
		case <-ctx.Done():
			e.unwatch(mint)
			return nil
		case <-time.After(delay):
		}
		if delay *= 2; delay > e.subscribeMaxDelay {
			delay = e.subscribeMaxDelay
		}
		if !e.stillWatching(mint) {
			return nil
		}
	}
}

// stillWatching reports whether any live position remains on the mint.
// When none do it releases the watch slot in the same critical section,
// so a later entry on the mint starts a fresh monitor.
func (e *Engine) stillWatching(mint string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.live {
		if p.Mint == mint {
			return true
		}
	}
	delete(e.watching, mint)
	return false
}

func (e *Engine) unwatch(mint string) {
	e.mu.Lock()
	delete(e.watching, mint)
	e.mu.Unlock()
}

// liveOnMint returns the IDs of live positions on the mint.
func (e *Engine) liveOnMint(mint string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, 1)
	for id, p := range e.live {
		if p.Mint == mint {
			ids = append(ids, id)
		}
	}
	return ids
}
