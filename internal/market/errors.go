package market

import (
	"errors"
	"fmt"
)

// ErrQuoteUnavailable is returned when no usable quote could be obtained
// within the retry budget.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// SwapFailReason classifies swap failures. Transient reasons are retried
// within the gateway's budget; definitive ones are not.
type SwapFailReason string

const (
	SwapFailSlippage          SwapFailReason = "SLIPPAGE"
	SwapFailInsufficientFunds SwapFailReason = "INSUFFICIENT_FUNDS"
	SwapFailTimeout           SwapFailReason = "TIMEOUT"
	SwapFailRejected          SwapFailReason = "REJECTED"
)

// SwapError is returned when a swap submission fails.
type SwapError struct {
	Reason SwapFailReason
	// TxSignature is set when the transaction was broadcast before the
	// failure was observed. Callers must reconcile via TransactionStatus
	// instead of assuming the swap had no effect.
	TxSignature string
	Err         error
}

func (e *SwapError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("swap failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("swap failed (%s)", e.Reason)
}

func (e *SwapError) Unwrap() error { return e.Err }

// Definitive reports whether retrying the same submission is pointless.
func (e *SwapError) Definitive() bool {
	switch e.Reason {
	case SwapFailSlippage, SwapFailInsufficientFunds, SwapFailRejected:
		return true
	default:
		return false
	}
}

// AsSwapError unwraps err to a *SwapError if present.
func AsSwapError(err error) (*SwapError, bool) {
	var se *SwapError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
