package stub

import (
	"context"
	"sync"

	"memetrader/internal/domain"
	"memetrader/internal/market"
)

// Gateway implements market.Gateway for testing and dry runs. Quotes and
// swap outcomes are scripted per token mint; swaps fill at the current
// scripted price unless a failure is scripted. Scripted prices are always
// SOL per token regardless of swap direction.
type Gateway struct {
	mu sync.Mutex

	// Quotes maps token mint to its scripted quote. Quote.Price is SOL
	// per token.
	Quotes map[string]*domain.Quote
	// SwapErrs maps intent ID to a scripted swap failure.
	SwapErrs map[string]*market.SwapError
	// TxStatuses maps transaction signature to its scripted status.
	TxStatuses map[string]domain.TxStatus

	// SwapCalls records every intent passed to Swap, in order.
	SwapCalls []domain.TradeIntent

	seq int
}

// NewGateway creates an empty stub gateway.
func NewGateway() *Gateway {
	return &Gateway{
		Quotes:     make(map[string]*domain.Quote),
		SwapErrs:   make(map[string]*market.SwapError),
		TxStatuses: make(map[string]domain.TxStatus),
	}
}

var _ market.Gateway = (*Gateway)(nil)

// SetQuote scripts the quote returned for an output mint.
func (g *Gateway) SetQuote(mint string, q *domain.Quote) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Quotes[mint] = q
}

// SetPrice scripts a simple quote at the given price for an output mint.
func (g *Gateway) SetPrice(mint string, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Quotes[mint] = &domain.Quote{
		OutputMint: mint,
		InAmount:   1,
		OutAmount:  price,
		Price:      price,
	}
}

// FailSwap scripts a failure for the given intent ID.
func (g *Gateway) FailSwap(intentID string, se *market.SwapError) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SwapErrs[intentID] = se
}

// SetTxStatus scripts the status lookup for a transaction signature.
func (g *Gateway) SetTxStatus(sig string, status domain.TxStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.TxStatuses[sig] = status
}

// lookup resolves the scripted quote for a swap pair. Exactly one side of
// the pair is a scripted token; the other is the base currency.
func (g *Gateway) lookup(inputMint, outputMint string) (q *domain.Quote, buying bool, ok bool) {
	if q, ok = g.Quotes[outputMint]; ok {
		return q, true, true
	}
	if q, ok = g.Quotes[inputMint]; ok {
		return q, false, true
	}
	return nil, false, false
}

// Quote returns the scripted quote for the pair, scaled to amount.
func (g *Gateway) Quote(_ context.Context, inputMint, outputMint string, amount float64) (*domain.Quote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	q, buying, ok := g.lookup(inputMint, outputMint)
	if !ok {
		return nil, market.ErrQuoteUnavailable
	}

	out := *q
	out.InputMint = inputMint
	out.OutputMint = outputMint
	out.InAmount = amount
	if buying {
		out.OutAmount = amount / q.Price // SOL in, tokens out
		out.Price = 1 / q.Price
	} else {
		out.OutAmount = amount * q.Price // tokens in, SOL out
		out.Price = q.Price
	}
	return &out, nil
}

// Swap fills at the scripted quote price, or fails if scripted to.
func (g *Gateway) Swap(_ context.Context, intent domain.TradeIntent, _ []byte) (*domain.SwapReceipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.SwapCalls = append(g.SwapCalls, intent)

	if se, ok := g.SwapErrs[intent.IntentID]; ok {
		return nil, se
	}

	q, buying, ok := g.lookup(intent.InputMint, intent.OutputMint)
	if !ok {
		return nil, &market.SwapError{Reason: market.SwapFailRejected, Err: market.ErrQuoteUnavailable}
	}

	out := intent.Amount * q.Price
	if buying {
		out = intent.Amount / q.Price
	}

	g.seq++
	return &domain.SwapReceipt{
		TxSignature: "stubtx-" + intent.IntentID[:8] + "-" + string(rune('a'+g.seq%26)),
		InAmount:    intent.Amount,
		OutAmount:   out,
		FillPrice:   out / intent.Amount,
	}, nil
}

// TransactionStatus returns the scripted status, defaulting to unknown.
func (g *Gateway) TransactionStatus(_ context.Context, txSignature string) (domain.TxStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status, ok := g.TxStatuses[txSignature]
	if !ok {
		return domain.TxStatusUnknown, nil
	}
	return status, nil
}

// SwapCount returns the number of recorded swap calls.
func (g *Gateway) SwapCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.SwapCalls)
}
