package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"memetrader/internal/domain"
	"memetrader/internal/market"
)

// flakyFeed rejects the first N Subscribe calls, then streams normally.
type flakyFeed struct {
	mu       sync.Mutex
	failures int
	attempts int
	subs     map[string]chan domain.PriceUpdate
}

func newFlakyFeed(failures int) *flakyFeed {
	return &flakyFeed{failures: failures, subs: make(map[string]chan domain.PriceUpdate)}
}

var _ market.PriceFeed = (*flakyFeed)(nil)

func (f *flakyFeed) Subscribe(_ context.Context, mint string) (<-chan domain.PriceUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failures {
		return nil, fmt.Errorf("subscribe %s: not connected", mint)
	}
	if _, ok := f.subs[mint]; ok {
		return nil, fmt.Errorf("already subscribed to %s", mint)
	}
	ch := make(chan domain.PriceUpdate, 8)
	f.subs[mint] = ch
	return ch, nil
}

func (f *flakyFeed) Unsubscribe(mint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.subs[mint]
	if !ok {
		return fmt.Errorf("not subscribed to %s", mint)
	}
	delete(f.subs, mint)
	close(ch)
	return nil
}

func (f *flakyFeed) Close() error { return nil }

func (f *flakyFeed) publish(mint string, price float64, tsMs int64) bool {
	f.mu.Lock()
	ch, ok := f.subs[mint]
	f.mu.Unlock()
	if !ok {
		return false
	}
	ch <- domain.PriceUpdate{Mint: mint, Price: price, TimestampMs: tsMs}
	return true
}

func (f *flakyFeed) subscribed(mint string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.subs[mint]
	return ok
}

func (f *flakyFeed) tries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// A feed that rejects the first subscription attempt must not leave an
// open position unmonitored: the monitor retries, and the stop still
// fires when the price collapses.
func TestEngine_MonitorRetriesFailedSubscribe(t *testing.T) {
	h := newHarness(t, testEngineConfig())
	feed := newFlakyFeed(1)
	h.engine.feed = feed
	h.engine.subscribeDelay = time.Millisecond
	h.engine.subscribeMaxDelay = 5 * time.Millisecond

	p := h.openPosition(t, testMint, 1.0)

	waitFor(t, 2*time.Second, func() bool { return feed.subscribed(testMint) })
	if got := feed.tries(); got < 2 {
		t.Fatalf("expected a subscribe retry, got %d attempts", got)
	}

	if !feed.publish(testMint, 0.10, h.clock.now()) {
		t.Fatal("publish without subscription")
	}

	waitFor(t, 2*time.Second, func() bool {
		stored, err := h.positions.GetByID(context.Background(), p.ID)
		return err == nil && stored.Status == domain.PositionClosed
	})

	stored, err := h.positions.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.CloseReason != domain.CloseReasonStopLoss {
		t.Errorf("expected stop-loss close, got %s", stored.CloseReason)
	}
}

// Two positions on the same mint share one feed subscription; the single
// monitor evaluates both on every tick.
func TestEngine_MonitorSharesMintSubscription(t *testing.T) {
	h := newHarness(t, testEngineConfig())
	feed := newFlakyFeed(0)
	h.engine.feed = feed
	h.engine.subscribeDelay = time.Millisecond

	p1 := h.openPosition(t, testMint, 1.0)
	h.clock.advance(time.Second)
	p2 := h.openPosition(t, testMint, 1.0)

	waitFor(t, 2*time.Second, func() bool { return feed.subscribed(testMint) })
	if got := feed.tries(); got != 1 {
		t.Fatalf("expected a single subscribe attempt, got %d", got)
	}

	if !feed.publish(testMint, 0.10, h.clock.now()) {
		t.Fatal("publish without subscription")
	}

	waitFor(t, 2*time.Second, func() bool {
		for _, id := range []string{p1.ID, p2.ID} {
			stored, err := h.positions.GetByID(context.Background(), id)
			if err != nil || stored.Status != domain.PositionClosed {
				return false
			}
		}
		return true
	})
}
