package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"memetrader/internal/domain"
)

// Source produces raw opportunity signals from one upstream channel
// (DEX listings, social scanners). Implementations return whatever they
// saw since the last call; the aggregator owns validation, dedupe, and
// tier assignment.
type Source interface {
	Name() string
	Produce(ctx context.Context) ([]*domain.Opportunity, error)
}

// DEXListingSource polls an HTTP endpoint publishing freshly listed pools
// with their market snapshot and contract safety results.
type DEXListingSource struct {
	baseURL string
	client  *http.Client
	nowMs   func() int64
}

// NewDEXListingSource creates a DEX listing source.
func NewDEXListingSource(baseURL string, client *http.Client) *DEXListingSource {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &DEXListingSource{
		baseURL: baseURL,
		client:  client,
		nowMs:   func() int64 { return time.Now().UnixMilli() },
	}
}

var _ Source = (*DEXListingSource)(nil)

// listing is one entry of the upstream new-listings payload.
type listing struct {
	Mint             string  `json:"mint"`
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	CreatedAt        int64   `json:"createdAt"` // ms
	LiquidityUSD     float64 `json:"liquidityUsd"`
	Holders          int     `json:"holders"`
	PriceUSD         float64 `json:"priceUsd"`
	Supply           float64 `json:"supply"`
	ContractVerified bool    `json:"contractVerified"`
	SellSimOK        bool    `json:"sellSimOk"`
	SellTaxPct       float64 `json:"sellTaxPct"`
}

// Name implements Source.
func (s *DEXListingSource) Name() string { return string(domain.SourceDEXListing) }

// Produce fetches the current new-listing batch.
func (s *DEXListingSource) Produce(ctx context.Context) ([]*domain.Opportunity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/new-listings", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch listings: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read listings: %w", err)
	}

	var listings []listing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}

	now := s.nowMs()
	opps := make([]*domain.Opportunity, 0, len(listings))
	for _, l := range listings {
		opps = append(opps, &domain.Opportunity{
			Mint:             l.Mint,
			Symbol:           l.Symbol,
			Name:             l.Name,
			Source:           domain.SourceDEXListing,
			DiscoveredAt:     now,
			CreatedAt:        l.CreatedAt,
			LiquidityUSD:     l.LiquidityUSD,
			Holders:          l.Holders,
			PriceUSD:         l.PriceUSD,
			SupplyUI:         l.Supply,
			ContractVerified: l.ContractVerified,
			SellSimOK:        l.SellSimOK,
			SellTaxPct:       l.SellTaxPct,
		})
	}
	return opps, nil
}
