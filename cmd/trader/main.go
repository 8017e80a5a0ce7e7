// Package main runs the trading daemon: signal scanning, risk filtering,
// entry execution, and per-position exit monitoring, with a control API
// and Prometheus metrics on the side.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"strconv"
	"syscall"
	"time"

	"memetrader/internal/config"
	"memetrader/internal/control"
	"memetrader/internal/engine"
	"memetrader/internal/history"
	"memetrader/internal/ledger"
	"memetrader/internal/ledger/memory"
	"memetrader/internal/ledger/migrations"
	pgstore "memetrader/internal/ledger/postgres"
	"memetrader/internal/market"
	"memetrader/internal/observability"
	"memetrader/internal/signal"
)

// stores holds the ledger backends the daemon runs on.
type stores struct {
	positions     ledger.PositionStore
	fills         ledger.FillStore
	counters      ledger.CounterStore
	opportunities ledger.OpportunityStore
}

func main() {
	// Parse flags (env vars as defaults)
	gatewayURL := flag.String("gateway-url", os.Getenv("AGGREGATOR_URL"), "DEX aggregator HTTP base URL")
	feedEndpoint := flag.String("feed-endpoint", os.Getenv("PRICE_WS_ENDPOINT"), "Price stream WebSocket endpoint")
	listingsURL := flag.String("listings-url", os.Getenv("DEX_LISTINGS_URL"), "New-listings HTTP base URL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, enables history)")
	webhookURL := flag.String("webhook-url", os.Getenv("NOTIFY_WEBHOOK_URL"), "Chat-bot webhook URL for trade notifications (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	httpAddr := flag.String("http-addr", ":8080", "Control and metrics HTTP address")
	initialBalance := flag.Float64("initial-balance", envFloat("INITIAL_BALANCE", 10), "Account balance in SOL when no state is restored")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[trader] ", log.LstdFlags|log.Lshortfile)

	// Load trading configuration (.env applied first, real env wins)
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Validate required flags
	if *gatewayURL == "" {
		logger.Fatal("--gateway-url is required")
	}
	if *feedEndpoint == "" {
		logger.Fatal("--feed-endpoint is required")
	}
	if *listingsURL == "" {
		logger.Fatal("--listings-url is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	st, cleanup, err := createStores(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Optional history store
	var hist *history.Store
	if *clickhouseDSN != "" {
		conn, err := history.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		defer conn.Close()
		hist = history.NewStore(conn)
		if err := hist.EnsureSchema(ctx); err != nil {
			logger.Fatalf("Failed to prepare history schema: %v", err)
		}
	}

	// Market access
	gateway := market.NewHTTPGateway(*gatewayURL)
	feed, err := market.NewWSPriceFeed(ctx, *feedEndpoint, nil, log.New(os.Stdout, "[feed] ", log.LstdFlags))
	if err != nil {
		logger.Fatalf("Failed to connect price feed: %v", err)
	}
	defer feed.Close()

	// Signal aggregation
	sources := []signal.Source{
		signal.NewDEXListingSource(*listingsURL, nil),
	}
	// Metrics
	metrics := observability.NewMetrics("memetrader")
	go metrics.RunUptime(ctx)

	aggregator := signal.NewAggregator(sources, st.opportunities, cfg, log.New(os.Stdout, "[signal] ", log.LstdFlags), metrics)

	// Notifications
	var notifier engine.Notifier
	if *webhookURL != "" {
		notifier = control.NewWebhookNotifier(*webhookURL, log.New(os.Stdout, "[notify] ", log.LstdFlags))
	} else {
		notifier = control.NewLogNotifier(log.New(os.Stdout, "[notify] ", log.LstdFlags))
	}

	// Execution engine
	eng, err := engine.New(engine.Options{
		Config:         cfg,
		Gateway:        gateway,
		Feed:           feed,
		Ledger:         st.positions,
		Fills:          st.fills,
		Counters:       st.counters,
		InitialBalance: *initialBalance,
		History:        historyRecorder(hist),
		Notifier:       notifier,
		Metrics:        metrics,
		Logger:         log.New(os.Stdout, "[engine] ", log.LstdFlags),
	})
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}

	// Control and metrics HTTP server
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	ctl := control.NewServer(control.Options{
		Engine:        eng,
		Scanner:       aggregator,
		Opportunities: st.opportunities,
		PnL:           pnlReader(hist),
		Logger:        log.New(os.Stdout, "[control] ", log.LstdFlags),
	})
	ctl.Register(mux)

	go func() {
		logger.Printf("Starting HTTP server on %s", *httpAddr)
		if err := http.ListenAndServe(*httpAddr, mux); err != nil && err != http.ErrServerClosed {
			logger.Printf("HTTP server error: %v", err)
		}
	}()

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Run the aggregator and the engine
	go aggregator.Run(ctx)

	err = eng.Run(ctx, aggregator.Opportunities())
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Engine error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the ledger stores, memory or PostgreSQL.
func createStores(ctx context.Context, postgresDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		st := &stores{
			positions:     memory.NewPositionStore(),
			fills:         memory.NewFillStore(),
			counters:      memory.NewCounterStore(),
			opportunities: memory.NewOpportunityStore(),
		}
		return st, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	st := &stores{
		positions:     pgstore.NewPositionStore(pool),
		fills:         pgstore.NewFillStore(pool),
		counters:      pgstore.NewCounterStore(pool),
		opportunities: pgstore.NewOpportunityStore(pool),
	}
	return st, pool.Close, nil
}

// historyRecorder converts a possibly-nil store into the engine's optional
// collaborator without producing a non-nil interface around a nil pointer.
func historyRecorder(s *history.Store) engine.HistoryRecorder {
	if s == nil {
		return nil
	}
	return s
}

// pnlReader converts a possibly-nil store the same way for the control API.
func pnlReader(s *history.Store) control.PnLReader {
	if s == nil {
		return nil
	}
	return s
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
