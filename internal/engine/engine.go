// Package engine executes trades: it turns accepted opportunities into
// positions, watches prices, and fires exit triggers. The engine owns the
// account state and daily counters; every position mutation goes through it
// and is persisted to the ledger before the engine moves on.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"memetrader/internal/config"
	"memetrader/internal/domain"
	"memetrader/internal/ledger"
	"memetrader/internal/market"
	"memetrader/internal/observability"
)

// sizeEpsilon below which a remainder counts as fully closed.
const sizeEpsilon = 1e-9

// Event is a notification about a trading decision or outcome.
type Event struct {
	Type     string // ENTRY, EXIT, ENTRY_FAILED, EXIT_FAILED, BREAKER, REJECTED
	Position *domain.Position
	Detail   string
}

// Notifier receives trading events. Implementations must not block for
// long; the engine calls Notify synchronously.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// HistoryRecorder archives price and P&L observations. Optional; a nil
// recorder disables archiving.
type HistoryRecorder interface {
	RecordPrice(ctx context.Context, mint string, price float64, tsMs int64) error
	RecordPnL(ctx context.Context, positionID, mint string, realized float64, tsMs int64) error
}

// Options for creating an Engine.
type Options struct {
	Config   *config.Config
	Gateway  market.Gateway
	Feed     market.PriceFeed
	Ledger   ledger.PositionStore
	Fills    ledger.FillStore
	Counters ledger.CounterStore

	// InitialBalance seeds the account when no state is restored.
	InitialBalance float64

	// Optional collaborators.
	History  HistoryRecorder
	Notifier Notifier
	Metrics  *observability.Metrics
	Logger   *log.Logger

	// NewFillID generates fill identifiers. Defaults to uuid.
	NewFillID func() string
	// NowMs overrides the clock. Test hook.
	NowMs func() int64
	// ReconcileAttempts bounds transaction status polling after a local
	// swap timeout.
	ReconcileAttempts int
	ReconcileDelay    time.Duration
}

// Engine is the trade execution engine.
type Engine struct {
	cfg      *config.Config
	gateway  market.Gateway
	feed     market.PriceFeed
	ledger   ledger.PositionStore
	fills    ledger.FillStore
	counterS ledger.CounterStore
	history  HistoryRecorder
	notifier Notifier
	metrics  *observability.Metrics
	logger   *log.Logger

	newFillID         func() string
	nowMs             func() int64
	reconcileAttempts int
	reconcileDelay    time.Duration

	mu       sync.Mutex
	account  domain.AccountState
	counters domain.DailyCounters
	// live holds every non-terminal position, keyed by position ID. The
	// position's monitor goroutine is the only exit executor; all reads
	// and writes happen under mu.
	live map[string]*domain.Position
	// executing marks positions with an exit swap in flight. At most one
	// execution per position at a time.
	executing map[string]bool
	// watching marks mints with a running monitor goroutine.
	watching map[string]bool

	subscribeDelay    time.Duration
	subscribeMaxDelay time.Duration

	wg sync.WaitGroup
}

// New creates an Engine from options.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil || opts.Gateway == nil || opts.Ledger == nil ||
		opts.Fills == nil || opts.Counters == nil {
		return nil, fmt.Errorf("engine: config, gateway, and ledger stores are required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	newFillID := opts.NewFillID
	if newFillID == nil {
		newFillID = defaultFillID
	}
	nowMs := opts.NowMs
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}
	attempts := opts.ReconcileAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := opts.ReconcileDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	return &Engine{
		cfg:               opts.Config,
		gateway:           opts.Gateway,
		feed:              opts.Feed,
		ledger:            opts.Ledger,
		fills:             opts.Fills,
		counterS:          opts.Counters,
		history:           opts.History,
		notifier:          opts.Notifier,
		metrics:           opts.Metrics,
		logger:            logger,
		newFillID:         newFillID,
		nowMs:             nowMs,
		reconcileAttempts: attempts,
		reconcileDelay:    delay,
		account:           domain.AccountState{Balance: opts.InitialBalance},
		live:              make(map[string]*domain.Position),
		executing:         make(map[string]bool),
		watching:          make(map[string]bool),
		subscribeDelay:    time.Second,
		subscribeMaxDelay: 30 * time.Second,
	}, nil
}

// Restore loads open positions and today's counters from the ledger and
// rebuilds the in-memory account view. Corrupt records abort the restore;
// the engine never repairs state it cannot explain.
func (e *Engine) Restore(ctx context.Context) error {
	open, err := e.ledger.GetOpen(ctx)
	if err != nil {
		return fmt.Errorf("restore positions: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var exposure float64
	for _, p := range open {
		if err := ledger.ValidatePosition(p); err != nil {
			return fmt.Errorf("restore position %s: %w", p.ID, err)
		}
		e.live[p.ID] = p
		exposure += p.Exposure()
	}
	e.account.OpenExposure = exposure

	day := dayKey(e.nowMs())
	counters, err := e.counterS.Get(ctx, day)
	switch {
	case err == nil:
		e.counters = *counters
	case errors.Is(err, ledger.ErrNotFound):
		e.counters = domain.DailyCounters{Day: day}
	default:
		return fmt.Errorf("restore counters: %w", err)
	}

	e.logger.Printf("[engine] restored %d open positions, exposure %.4f SOL", len(open), exposure)
	e.updateGauges()
	return nil
}

// Run restores state, starts monitors for open positions, and consumes the
// opportunity stream until the context is cancelled or the channel closes.
func (e *Engine) Run(ctx context.Context, opps <-chan *domain.Opportunity) error {
	if err := e.Restore(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	for _, p := range e.live {
		e.startMonitor(ctx, p)
	}
	e.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			return ctx.Err()
		case opp, ok := <-opps:
			if !ok {
				e.wg.Wait()
				return nil
			}
			if err := e.HandleOpportunity(ctx, opp); err != nil {
				e.logger.Printf("[engine] opportunity %s: %v", opp.Mint, err)
			}
		}
	}
}

// Snapshot returns a copy of the account state and daily counters.
func (e *Engine) Snapshot() (domain.AccountState, domain.DailyCounters) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account, e.counters
}

// OpenPositions returns copies of every live position, for read-only use.
func (e *Engine) OpenPositions() []*domain.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*domain.Position, 0, len(e.live))
	for _, p := range e.live {
		out = append(out, clonePosition(p))
	}
	return out
}

// notify sends an event when a notifier is configured.
func (e *Engine) notify(ctx context.Context, ev Event) {
	if e.notifier != nil {
		e.notifier.Notify(ctx, ev)
	}
}

// persistCounters writes the daily counters. Caller holds mu.
func (e *Engine) persistCounters(ctx context.Context) {
	counters := e.counters
	if err := e.counterS.Put(ctx, &counters); err != nil {
		e.logger.Printf("[engine] persist counters: %v", err)
	}
}

// recordError bumps the consecutive error streak. Caller holds mu.
func (e *Engine) recordError(ctx context.Context) {
	e.counters.ConsecutiveErrors++
	e.counters.LastErrorAt = e.nowMs()
	e.persistCounters(ctx)
}

// recordSuccess clears the error streak after any successful trade.
// Caller holds mu.
func (e *Engine) recordSuccess(ctx context.Context) {
	if e.counters.ConsecutiveErrors != 0 {
		e.counters.ConsecutiveErrors = 0
		e.persistCounters(ctx)
	}
}

// updateGauges refreshes the portfolio gauges. Caller holds mu.
func (e *Engine) updateGauges() {
	if e.metrics == nil {
		return
	}
	e.metrics.OpenPositions.Set(float64(len(e.live)))
	e.metrics.OpenExposure.Set(e.account.OpenExposure)
	e.metrics.Balance.Set(e.account.Balance)
}

func clonePosition(p *domain.Position) *domain.Position {
	c := *p
	if p.ClosedAt != nil {
		closedAt := *p.ClosedAt
		c.ClosedAt = &closedAt
	}
	c.TakeProfits = append([]domain.TakeProfitLevel(nil), p.TakeProfits...)
	return &c
}
