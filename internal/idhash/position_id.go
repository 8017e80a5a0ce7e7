package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"memetrader/internal/domain"
)

// ComputePositionID computes a deterministic position ID using SHA256.
// Formula: SHA256(mint|source|opened_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputePositionID(mint string, source domain.Source, openedAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", mint, string(source), openedAtMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
