package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"memetrader/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPGateway implements Gateway against a Jupiter-style aggregator HTTP
// API (GET /quote, POST /swap, GET /tx/{signature}).
type HTTPGateway struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	nowMs       func() int64
}

// GatewayOption configures HTTPGateway.
type GatewayOption func(*HTTPGateway)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) GatewayOption {
	return func(g *HTTPGateway) {
		g.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for transient failures.
func WithMaxRetries(n int) GatewayOption {
	return func(g *HTTPGateway) {
		g.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) GatewayOption {
	return func(g *HTTPGateway) {
		g.retryDelay = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *HTTPGateway) {
		g.client = client
	}
}

// WithClock overrides the timestamp source. Test hook.
func WithClock(nowMs func() int64) GatewayOption {
	return func(g *HTTPGateway) {
		g.nowMs = nowMs
	}
}

// NewHTTPGateway creates a new aggregator gateway.
func NewHTTPGateway(baseURL string, opts ...GatewayOption) *HTTPGateway {
	g := &HTTPGateway{
		baseURL:     baseURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		nowMs:       func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var _ Gateway = (*HTTPGateway)(nil)

// quoteResponse is the aggregator's quote payload.
type quoteResponse struct {
	InputMint      string          `json:"inputMint"`
	OutputMint     string          `json:"outputMint"`
	InAmount       string          `json:"inAmount"`
	OutAmount      string          `json:"outAmount"`
	PriceImpactPct string          `json:"priceImpactPct"`
	LiquidityUSD   float64         `json:"liquidityUsd"`
	RoutePlan      json.RawMessage `json:"routePlan"`
}

// swapRequest is the aggregator's swap submission payload.
type swapRequest struct {
	IntentID    string          `json:"intentId"`
	InputMint   string          `json:"inputMint"`
	OutputMint  string          `json:"outputMint"`
	Amount      string          `json:"amount"`
	SlippageBps int             `json:"slippageBps"`
	RoutePlan   json.RawMessage `json:"routePlan,omitempty"`
}

// swapResponse is the aggregator's swap result payload.
type swapResponse struct {
	TxSignature string `json:"txSignature"`
	InAmount    string `json:"inAmount"`
	OutAmount   string `json:"outAmount"`
	ErrorCode   string `json:"errorCode,omitempty"`
	ErrorMsg    string `json:"errorMessage,omitempty"`
}

// txStatusResponse is the aggregator's transaction lookup payload.
type txStatusResponse struct {
	Status string `json:"status"` // confirmed | failed | unknown
}

// Quote fetches a quote with retries and exponential backoff.
func (g *HTTPGateway) Quote(ctx context.Context, inputMint, outputMint string, amount float64) (*domain.Quote, error) {
	raw, err := UIToRaw(amount, SOLDecimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	params := url.Values{}
	params.Set("inputMint", inputMint)
	params.Set("outputMint", outputMint)
	params.Set("amount", raw)

	var resp quoteResponse
	err = g.withRetry(ctx, func() error {
		return g.getJSON(ctx, "/quote?"+params.Encode(), &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}

	inUI, err := RawToUI(resp.InAmount, SOLDecimals)
	if err != nil {
		return nil, fmt.Errorf("%w: bad inAmount %q", ErrQuoteUnavailable, resp.InAmount)
	}
	outUI, err := RawToUI(resp.OutAmount, SOLDecimals)
	if err != nil {
		return nil, fmt.Errorf("%w: bad outAmount %q", ErrQuoteUnavailable, resp.OutAmount)
	}
	if inUI <= 0 || outUI <= 0 {
		return nil, fmt.Errorf("%w: empty route", ErrQuoteUnavailable)
	}

	impact, _ := strconv.ParseFloat(resp.PriceImpactPct, 64)

	return &domain.Quote{
		InputMint:      resp.InputMint,
		OutputMint:     resp.OutputMint,
		InAmount:       inUI,
		OutAmount:      outUI,
		Price:          outUI / inUI,
		PriceImpactPct: impact,
		LiquidityUSD:   resp.LiquidityUSD,
		Route:          resp.RoutePlan,
		FetchedAt:      g.nowMs(),
	}, nil
}

// Swap submits a swap. Transient failures are retried with the same intent
// ID so the aggregator can deduplicate; definitive rejections are returned
// immediately as *SwapError.
func (g *HTTPGateway) Swap(ctx context.Context, intent domain.TradeIntent, route []byte) (*domain.SwapReceipt, error) {
	raw, err := UIToRaw(intent.Amount, SOLDecimals)
	if err != nil {
		return nil, &SwapError{Reason: SwapFailRejected, Err: err}
	}

	req := swapRequest{
		IntentID:    intent.IntentID,
		InputMint:   intent.InputMint,
		OutputMint:  intent.OutputMint,
		Amount:      raw,
		SlippageBps: intent.MaxSlippageBps,
		RoutePlan:   route,
	}

	var resp swapResponse
	err = g.withRetry(ctx, func() error {
		err := g.postJSON(ctx, "/swap", req, &resp)
		if err != nil {
			return err
		}
		if resp.ErrorCode != "" {
			return swapErrorFromCode(resp.ErrorCode, resp.ErrorMsg, resp.TxSignature)
		}
		return nil
	})
	if err != nil {
		if se, ok := AsSwapError(err); ok {
			return nil, se
		}
		return nil, &SwapError{Reason: SwapFailTimeout, TxSignature: resp.TxSignature, Err: err}
	}

	inUI, err := RawToUI(resp.InAmount, SOLDecimals)
	if err != nil || inUI <= 0 {
		return nil, &SwapError{Reason: SwapFailRejected, TxSignature: resp.TxSignature,
			Err: fmt.Errorf("bad fill amount %q", resp.InAmount)}
	}
	outUI, err := RawToUI(resp.OutAmount, SOLDecimals)
	if err != nil {
		return nil, &SwapError{Reason: SwapFailRejected, TxSignature: resp.TxSignature,
			Err: fmt.Errorf("bad fill amount %q", resp.OutAmount)}
	}

	return &domain.SwapReceipt{
		TxSignature: resp.TxSignature,
		InAmount:    inUI,
		OutAmount:   outUI,
		FillPrice:   outUI / inUI,
		ConfirmedAt: g.nowMs(),
	}, nil
}

// TransactionStatus looks up the final outcome of a broadcast transaction.
func (g *HTTPGateway) TransactionStatus(ctx context.Context, txSignature string) (domain.TxStatus, error) {
	var resp txStatusResponse
	err := g.withRetry(ctx, func() error {
		return g.getJSON(ctx, "/tx/"+url.PathEscape(txSignature), &resp)
	})
	if err != nil {
		return domain.TxStatusUnknown, fmt.Errorf("transaction status: %w", err)
	}

	switch resp.Status {
	case "confirmed", "finalized":
		return domain.TxStatusConfirmed, nil
	case "failed":
		return domain.TxStatusFailed, nil
	default:
		return domain.TxStatusUnknown, nil
	}
}

// withRetry runs fn with bounded exponential backoff. Definitive swap
// errors abort immediately.
func (g *HTTPGateway) withRetry(ctx context.Context, fn func() error) error {
	delay := g.retryDelay
	var lastErr error

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * g.backoffMult)
			if delay > g.maxDelay {
				delay = g.maxDelay
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if se, ok := AsSwapError(lastErr); ok && se.Definitive() {
			return lastErr
		}
	}

	return lastErr
}

func (g *HTTPGateway) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return g.do(req, out)
}

func (g *HTTPGateway) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *HTTPGateway) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// swapErrorFromCode maps aggregator error codes to the failure taxonomy.
func swapErrorFromCode(code, msg, sig string) *SwapError {
	err := fmt.Errorf("%s: %s", code, msg)
	switch code {
	case "SLIPPAGE_EXCEEDED":
		return &SwapError{Reason: SwapFailSlippage, TxSignature: sig, Err: err}
	case "INSUFFICIENT_FUNDS":
		return &SwapError{Reason: SwapFailInsufficientFunds, TxSignature: sig, Err: err}
	case "TIMEOUT":
		return &SwapError{Reason: SwapFailTimeout, TxSignature: sig, Err: err}
	default:
		return &SwapError{Reason: SwapFailRejected, TxSignature: sig, Err: err}
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
