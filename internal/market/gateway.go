// Package market normalizes quotes, liquidity, and swap execution across
// DEX aggregators behind a single Gateway interface, and streams price
// updates for monitored mints.
package market

import (
	"context"

	"memetrader/internal/domain"
)

// Gateway is the market data and execution surface consumed by the
// execution engine. Implementations must be safe for concurrent use.
type Gateway interface {
	// Quote fetches a normalized swap quote. Transient upstream failures
	// are retried with bounded backoff; exhaustion returns
	// ErrQuoteUnavailable.
	Quote(ctx context.Context, inputMint, outputMint string, amount float64) (*domain.Quote, error)

	// Swap submits a swap along the quoted route. A returned *SwapError
	// with a non-empty TxSignature means the transaction may have reached
	// the chain; the caller must reconcile via TransactionStatus before
	// treating the swap as void.
	Swap(ctx context.Context, intent domain.TradeIntent, route []byte) (*domain.SwapReceipt, error)

	// TransactionStatus looks up the final on-chain outcome of a
	// broadcast transaction.
	TransactionStatus(ctx context.Context, txSignature string) (domain.TxStatus, error)
}

// PriceFeed delivers price observations for subscribed mints.
type PriceFeed interface {
	// Subscribe starts streaming price updates for a mint. Updates are
	// delivered on the returned channel until Unsubscribe or feed close.
	Subscribe(ctx context.Context, mint string) (<-chan domain.PriceUpdate, error)

	// Unsubscribe stops the stream for a mint and closes its channel.
	// Returns an error when the mint has no subscription or the feed is
	// already closed.
	Unsubscribe(mint string) error

	// Close shuts the feed down and closes all subscription channels.
	Close() error
}
