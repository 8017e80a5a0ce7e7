package signal

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
)

// newTestMint returns a freshly generated ed25519 public key encoded as a
// base58 mint address. Generated keys are on-curve by construction.
func newTestMint(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return base58.Encode(pub)
}

func TestValidateMint_Valid(t *testing.T) {
	mint := newTestMint(t)
	if err := ValidateMint(mint); err != nil {
		t.Errorf("ValidateMint(%s): %v", mint, err)
	}
}

func TestValidateMint_InvalidBase58(t *testing.T) {
	if err := ValidateMint("not-base58-0OIl"); err == nil {
		t.Error("expected error for invalid base58")
	}
}

func TestValidateMint_WrongLength(t *testing.T) {
	// "abc" decodes to fewer than 32 bytes
	if err := ValidateMint("abc"); err == nil {
		t.Error("expected error for short address")
	}
}

func TestValidateMint_OffCurve(t *testing.T) {
	// Raydium AMM v4 authority, a program derived address (off-curve)
	if err := ValidateMint("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"); err == nil {
		t.Error("expected error for off-curve address")
	}
}
