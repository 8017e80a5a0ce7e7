package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Token decimal scales on Solana.
const (
	SOLDecimals = 9
)

// UIToRaw converts a UI amount (e.g. 0.1 SOL) to the raw integer string
// expected on the wire. Exact decimal arithmetic avoids float truncation
// on small amounts.
func UIToRaw(amount float64, decimals int32) (string, error) {
	if amount < 0 {
		return "", fmt.Errorf("negative amount %f", amount)
	}
	d := decimal.NewFromFloat(amount).Shift(decimals)
	if !d.IsInteger() {
		d = d.Floor()
	}
	return d.String(), nil
}

// RawToUI converts a raw integer string back to a UI amount.
func RawToUI(raw string, decimals int32) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty raw amount")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("parse raw amount %q: %w", raw, err)
	}
	f, _ := d.Shift(-decimals).Float64()
	return f, nil
}
