// Package control exposes the operator surface over HTTP JSON: wallet
// status, open positions, force-close, manual scans, and the portfolio
// snapshot the dashboard renders.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"memetrader/internal/domain"
	"memetrader/internal/history"
	"memetrader/internal/ledger"
)

// recentOpportunityLimit caps the dashboard opportunity list.
const recentOpportunityLimit = 50

// pnlWindow is how far back the portfolio snapshot reads realized P&L.
const pnlWindow = 24 * time.Hour

// TradingEngine is the engine surface the control server drives.
type TradingEngine interface {
	Snapshot() (domain.AccountState, domain.DailyCounters)
	OpenPositions() []*domain.Position
	ForceClose(ctx context.Context, positionID string) error
}

// Scanner triggers an immediate opportunity scan.
type Scanner interface {
	Scan(ctx context.Context) int
}

// PnLReader serves realized P&L history for the dashboard. Optional.
type PnLReader interface {
	PnLHistory(ctx context.Context, start, end int64) ([]*history.PnLPoint, error)
}

// Options for creating a Server.
type Options struct {
	Engine        TradingEngine
	Scanner       Scanner
	Opportunities ledger.OpportunityStore
	PnL           PnLReader
	Logger        *log.Logger
}

// Server answers operator commands. Safe for concurrent use.
type Server struct {
	engine  TradingEngine
	scanner Scanner
	opps    ledger.OpportunityStore
	pnl     PnLReader
	logger  *log.Logger
	started time.Time
}

// NewServer creates a control server. Engine is required; the other
// collaborators are optional and their endpoints degrade gracefully.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[control] ", log.LstdFlags)
	}
	return &Server{
		engine:  opts.Engine,
		scanner: opts.Scanner,
		opps:    opts.Opportunities,
		pnl:     opts.PnL,
		logger:  logger,
		started: time.Now(),
	}
}

// Register mounts the control routes on a mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /positions", s.handlePositions)
	mux.HandleFunc("POST /positions/{id}/close", s.handleForceClose)
	mux.HandleFunc("POST /scan", s.handleScan)
	mux.HandleFunc("GET /portfolio", s.handlePortfolio)
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status            string  `json:"status"`
	Uptime            string  `json:"uptime"`
	Balance           float64 `json:"balance"`
	OpenExposure      float64 `json:"open_exposure"`
	OpenPositions     int     `json:"open_positions"`
	Day               string  `json:"day"`
	TradeCount        int     `json:"trade_count"`
	RealizedLoss      float64 `json:"realized_loss"`
	ConsecutiveErrors int     `json:"consecutive_errors"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	account, counters := s.engine.Snapshot()

	resp := StatusResponse{
		Status:            "running",
		Uptime:            time.Since(s.started).String(),
		Balance:           account.Balance,
		OpenExposure:      account.OpenExposure,
		OpenPositions:     len(s.engine.OpenPositions()),
		Day:               counters.Day,
		TradeCount:        counters.TradeCount,
		RealizedLoss:      counters.RealizedLoss,
		ConsecutiveErrors: counters.ConsecutiveErrors,
	}
	writeJSON(w, http.StatusOK, resp)
}

// PositionResponse is the JSON shape of one position.
type PositionResponse struct {
	ID            string  `json:"id"`
	Mint          string  `json:"mint"`
	Symbol        string  `json:"symbol,omitempty"`
	Status        string  `json:"status"`
	EntryPrice    float64 `json:"entry_price"`
	EntrySize     float64 `json:"entry_size"`
	RemainingSize float64 `json:"remaining_size"`
	RealizedPnL   float64 `json:"realized_pnl"`
	OpenedAt      int64   `json:"opened_at"`
	ClosedAt      int64   `json:"closed_at,omitempty"`
	CloseReason   string  `json:"close_reason,omitempty"`
}

func positionResponse(p *domain.Position) PositionResponse {
	resp := PositionResponse{
		ID:            p.ID,
		Mint:          p.Mint,
		Symbol:        p.Symbol,
		Status:        string(p.Status),
		EntryPrice:    p.EntryPrice,
		EntrySize:     p.EntrySize,
		RemainingSize: p.RemainingSize,
		RealizedPnL:   p.RealizedPnL,
		OpenedAt:      p.OpenedAt,
		CloseReason:   p.CloseReason,
	}
	if p.ClosedAt != nil {
		resp.ClosedAt = *p.ClosedAt
	}
	return resp
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	open := s.engine.OpenPositions()
	resp := make([]PositionResponse, 0, len(open))
	for _, p := range open {
		resp = append(resp, positionResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleForceClose(w http.ResponseWriter, r *http.Request) {
	positionID := r.PathValue("id")

	err := s.engine.ForceClose(r.Context(), positionID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"result": "closed"})
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "position not found")
	default:
		s.logger.Printf("Force close %s failed: %v", positionID, err)
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeError(w, http.StatusServiceUnavailable, "scanner not configured")
		return
	}
	emitted := s.scanner.Scan(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"emitted": emitted})
}

// PortfolioResponse is the JSON response for /portfolio.
type PortfolioResponse struct {
	Balance             float64               `json:"balance"`
	OpenExposure        float64               `json:"open_exposure"`
	Positions           []PositionResponse    `json:"positions"`
	PnLHistory          []PnLEntry            `json:"pnl_history"`
	RecentOpportunities []OpportunityResponse `json:"recent_opportunities"`
}

// PnLEntry is one realized P&L event in the portfolio snapshot.
type PnLEntry struct {
	PositionID  string  `json:"position_id"`
	Mint        string  `json:"mint"`
	Realized    float64 `json:"realized"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// OpportunityResponse is the JSON shape of one scored opportunity.
type OpportunityResponse struct {
	Mint         string  `json:"mint"`
	Symbol       string  `json:"symbol,omitempty"`
	Tier         string  `json:"tier"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	Holders      int     `json:"holders"`
	PriceUSD     float64 `json:"price_usd"`
	DiscoveredAt int64   `json:"discovered_at"`
	Source       string  `json:"source,omitempty"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, _ := s.engine.Snapshot()

	open := s.engine.OpenPositions()
	positions := make([]PositionResponse, 0, len(open))
	for _, p := range open {
		positions = append(positions, positionResponse(p))
	}

	pnl := make([]PnLEntry, 0)
	if s.pnl != nil {
		end := time.Now().UnixMilli()
		start := end - pnlWindow.Milliseconds()
		points, err := s.pnl.PnLHistory(ctx, start, end)
		if err != nil {
			s.logger.Printf("PnL history read failed: %v", err)
		} else {
			for _, pt := range points {
				pnl = append(pnl, PnLEntry{
					PositionID:  pt.PositionID,
					Mint:        pt.Mint,
					Realized:    pt.Realized,
					TimestampMs: pt.TimestampMs,
				})
			}
		}
	}

	opps := make([]OpportunityResponse, 0)
	if s.opps != nil {
		recent, err := s.opps.Recent(ctx, recentOpportunityLimit)
		if err != nil {
			s.logger.Printf("Recent opportunities read failed: %v", err)
		} else {
			for _, o := range recent {
				opps = append(opps, OpportunityResponse{
					Mint:         o.Mint,
					Symbol:       o.Symbol,
					Tier:         string(o.Tier),
					LiquidityUSD: o.LiquidityUSD,
					Holders:      o.Holders,
					PriceUSD:     o.PriceUSD,
					DiscoveredAt: o.DiscoveredAt,
					Source:       string(o.Source),
				})
			}
		}
	}

	writeJSON(w, http.StatusOK, PortfolioResponse{
		Balance:             account.Balance,
		OpenExposure:        account.OpenExposure,
		Positions:           positions,
		PnLHistory:          pnl,
		RecentOpportunities: opps,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
