package signal

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateMint checks that a mint address is a plausible Solana token mint:
// valid base58, exactly 32 bytes, and on the ed25519 curve. Program derived
// addresses are off-curve and cannot be token mints.
func ValidateMint(mint string) error {
	decoded, err := base58.Decode(mint)
	if err != nil {
		return fmt.Errorf("mint %q: invalid base58: %w", mint, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("mint %q: expected 32 bytes, got %d", mint, len(decoded))
	}
	if _, err := new(edwards25519.Point).SetBytes(decoded); err != nil {
		return fmt.Errorf("mint %q: not on the ed25519 curve", mint)
	}
	return nil
}
