package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(config_key|period|step)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(configKey string, period string, step int) string {
	data := fmt.Sprintf("%s|%s|%d", configKey, period, step)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
