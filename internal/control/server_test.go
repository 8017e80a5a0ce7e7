package control

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"memetrader/internal/domain"
	"memetrader/internal/engine"
	"memetrader/internal/history"
	"memetrader/internal/ledger"
	"memetrader/internal/ledger/memory"
)

type fakeEngine struct {
	account   domain.AccountState
	counters  domain.DailyCounters
	positions []*domain.Position
	closed    []string
	closeErr  error
}

func (f *fakeEngine) Snapshot() (domain.AccountState, domain.DailyCounters) {
	return f.account, f.counters
}

func (f *fakeEngine) OpenPositions() []*domain.Position {
	return f.positions
}

func (f *fakeEngine) ForceClose(_ context.Context, positionID string) error {
	if f.closeErr != nil {
		return f.closeErr
	}
	f.closed = append(f.closed, positionID)
	return nil
}

type fakeScanner struct {
	emitted int
	calls   int
}

func (f *fakeScanner) Scan(context.Context) int {
	f.calls++
	return f.emitted
}

type fakePnL struct {
	points []*history.PnLPoint
}

func (f *fakePnL) PnLHistory(context.Context, int64, int64) ([]*history.PnLPoint, error) {
	return f.points, nil
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[control] ", log.LstdFlags)
	}
	mux := http.NewServeMux()
	NewServer(opts).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestServer_Status(t *testing.T) {
	eng := &fakeEngine{
		account: domain.AccountState{Balance: 1026.5, OpenExposure: 100},
		counters: domain.DailyCounters{
			Day:        "2026-08-28",
			TradeCount: 3,
		},
		positions: []*domain.Position{{ID: "p1", Status: domain.PositionOpen}},
	}
	srv := newTestServer(t, Options{Engine: eng})

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Balance != 1026.5 {
		t.Errorf("expected balance 1026.5, got %f", body.Balance)
	}
	if body.OpenPositions != 1 {
		t.Errorf("expected 1 open position, got %d", body.OpenPositions)
	}
	if body.TradeCount != 3 {
		t.Errorf("expected trade count 3, got %d", body.TradeCount)
	}
}

func TestServer_ForceClose(t *testing.T) {
	eng := &fakeEngine{}
	srv := newTestServer(t, Options{Engine: eng})

	resp, err := http.Post(srv.URL+"/positions/pos-1/close", "application/json", nil)
	if err != nil {
		t.Fatalf("POST close: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(eng.closed) != 1 || eng.closed[0] != "pos-1" {
		t.Errorf("expected force close of pos-1, got %v", eng.closed)
	}
}

func TestServer_ForceCloseNotFound(t *testing.T) {
	eng := &fakeEngine{closeErr: ledger.ErrNotFound}
	srv := newTestServer(t, Options{Engine: eng})

	resp, err := http.Post(srv.URL+"/positions/missing/close", "application/json", nil)
	if err != nil {
		t.Fatalf("POST close: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestServer_Scan(t *testing.T) {
	eng := &fakeEngine{}
	scanner := &fakeScanner{emitted: 4}
	srv := newTestServer(t, Options{Engine: eng, Scanner: scanner})

	resp, err := http.Post(srv.URL+"/scan", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /scan: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["emitted"] != 4 {
		t.Errorf("expected 4 emitted, got %d", body["emitted"])
	}
	if scanner.calls != 1 {
		t.Errorf("expected 1 scan call, got %d", scanner.calls)
	}
}

func TestServer_ScanWithoutScanner(t *testing.T) {
	srv := newTestServer(t, Options{Engine: &fakeEngine{}})

	resp, err := http.Post(srv.URL+"/scan", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /scan: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func TestServer_Portfolio(t *testing.T) {
	eng := &fakeEngine{
		account: domain.AccountState{Balance: 900, OpenExposure: 100},
		positions: []*domain.Position{{
			ID:            "p1",
			Mint:          "MintA",
			Status:        domain.PositionOpen,
			EntryPrice:    1.0,
			EntrySize:     100,
			RemainingSize: 100,
		}},
	}

	opps := memory.NewOpportunityStore()
	err := opps.Insert(context.Background(), &domain.Opportunity{
		Mint:         "MintB",
		Symbol:       "MEME",
		Tier:         domain.Tier100x,
		LiquidityUSD: 60000,
		DiscoveredAt: 1000,
		Source:       domain.SourceDEXListing,
	})
	if err != nil {
		t.Fatalf("seed opportunity: %v", err)
	}

	pnl := &fakePnL{points: []*history.PnLPoint{
		{PositionID: "p0", Mint: "MintC", Realized: 12.5, TimestampMs: 2000},
	}}

	srv := newTestServer(t, Options{Engine: eng, Opportunities: opps, PnL: pnl})

	resp, err := http.Get(srv.URL + "/portfolio")
	if err != nil {
		t.Fatalf("GET /portfolio: %v", err)
	}
	defer resp.Body.Close()

	var body PortfolioResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(body.Positions) != 1 || body.Positions[0].ID != "p1" {
		t.Errorf("unexpected positions: %+v", body.Positions)
	}
	if len(body.PnLHistory) != 1 || body.PnLHistory[0].Realized != 12.5 {
		t.Errorf("unexpected pnl history: %+v", body.PnLHistory)
	}
	if len(body.RecentOpportunities) != 1 || body.RecentOpportunities[0].Mint != "MintB" {
		t.Errorf("unexpected opportunities: %+v", body.RecentOpportunities)
	}
}

func TestLogNotifier_Notify(t *testing.T) {
	n := NewLogNotifier(log.New(os.Stderr, "[notify] ", log.LstdFlags))

	// Must not panic with or without a position.
	n.Notify(context.Background(), engine.Event{Type: "BREAKER", Detail: "max-daily-trades"})
	n.Notify(context.Background(), engine.Event{
		Type:     "ENTRY",
		Position: &domain.Position{ID: "p1", Mint: "MintA", Status: domain.PositionOpen},
	})
}

func TestWebhookNotifier_Notify(t *testing.T) {
	var got webhookPayload
	hits := 0
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode webhook body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	n := NewWebhookNotifier(hook.URL, log.New(os.Stderr, "[notify] ", log.LstdFlags))
	n.Notify(context.Background(), engine.Event{
		Type:     "EXIT",
		Detail:   "take-profit",
		Position: &domain.Position{ID: "p1", Mint: "MintA", Status: domain.PositionPartiallyClosed},
	})

	if hits != 1 {
		t.Fatalf("expected 1 webhook delivery, got %d", hits)
	}
	if got.Type != "EXIT" || got.Position == nil || got.Position.ID != "p1" {
		t.Errorf("unexpected payload: %+v", got)
	}
}
