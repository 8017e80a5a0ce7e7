// Package signal collects raw token signals from pluggable sources and turns
// them into scored opportunities for the risk filter.
package signal

import (
	"context"
	"errors"
	"log"
	"time"

	"memetrader/internal/config"
	"memetrader/internal/domain"
	"memetrader/internal/ledger"
	"memetrader/internal/observability"
)

// Aggregator polls all sources on the trade interval, validates and dedupes
// signals, assigns a potential tier, and emits scored opportunities.
type Aggregator struct {
	sources   []Source
	store     ledger.OpportunityStore
	cfg       *config.Config
	logger    *log.Logger
	metrics   *observability.Metrics
	out       chan *domain.Opportunity
	seenMints map[string]bool
	nowMs     func() int64
}

// NewAggregator creates an aggregator. The store may record opportunities
// for the dashboard; it never blocks emission. Metrics are optional.
func NewAggregator(sources []Source, store ledger.OpportunityStore, cfg *config.Config, logger *log.Logger, metrics *observability.Metrics) *Aggregator {
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{
		sources:   sources,
		store:     store,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		out:       make(chan *domain.Opportunity, 64),
		seenMints: make(map[string]bool),
		nowMs:     func() int64 { return time.Now().UnixMilli() },
	}
}

// Opportunities returns the stream of scored opportunities. Closed when Run
// returns.
func (a *Aggregator) Opportunities() <-chan *domain.Opportunity {
	return a.out
}

// Run polls sources until the context is cancelled. One scan runs
// immediately on start.
func (a *Aggregator) Run(ctx context.Context) {
	defer close(a.out)

	ticker := time.NewTicker(a.cfg.TradeInterval)
	defer ticker.Stop()

	a.Scan(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Scan(ctx)
		}
	}
}

// Scan runs one polling cycle across all sources. Returns the number of
// opportunities emitted.
func (a *Aggregator) Scan(ctx context.Context) int {
	emitted := 0
	for _, src := range a.sources {
		opps, err := src.Produce(ctx)
		if err != nil {
			a.logger.Printf("[signal] source %s: %v", src.Name(), err)
			continue
		}
		for _, opp := range opps {
			if a.process(ctx, opp) {
				emitted++
			}
		}
	}
	if a.metrics != nil {
		a.metrics.LastScanAt.Set(float64(a.nowMs()) / 1000)
	}
	return emitted
}

// process validates, dedupes, scores, records, and emits one signal.
// Returns true if the opportunity was emitted.
func (a *Aggregator) process(ctx context.Context, opp *domain.Opportunity) bool {
	if err := ValidateMint(opp.Mint); err != nil {
		a.logger.Printf("[signal] dropped: %v", err)
		return false
	}

	if a.seenMints[opp.Mint] {
		return false
	}
	a.seenMints[opp.Mint] = true

	if opp.DiscoveredAt == 0 {
		opp.DiscoveredAt = a.nowMs()
	}
	opp.Tier = AssignTier(opp, a.cfg.TierThresholds)
	if a.metrics != nil {
		a.metrics.OpportunitiesScored.Inc()
	}

	if a.store != nil {
		if err := a.store.Insert(ctx, opp); err != nil && !errors.Is(err, ledger.ErrDuplicateKey) {
			a.logger.Printf("[signal] record opportunity %s: %v", opp.Mint, err)
		}
	}

	select {
	case a.out <- opp:
		return true
	case <-ctx.Done():
		return false
	}
}
