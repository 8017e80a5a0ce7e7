package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"memetrader/internal/domain"
)

// ComputeIntentID computes a deterministic trade-intent ID using SHA256.
// Formula: SHA256(position_id|kind|trigger_index)
// The ID is the idempotency key for swap submission: every retry of the
// same logical execution reuses it, so a duplicate broadcast can be
// detected by the gateway.
// Returns hex-encoded hash (64 characters).
func ComputeIntentID(positionID string, kind domain.FillKind, triggerIndex int) string {
	data := fmt.Sprintf("%s|%s|%d", positionID, string(kind), triggerIndex)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
