package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"

	"marksix-lab/internal/domain"
)

// ConfigKey computes the canonical key of a strategy config.
// Formula: SHA256(canonical JSON of cfg). Struct fields serialize in
// declaration order, so equal configs always yield equal keys.
// Returns hex-encoded hash (64 characters).
func ConfigKey(cfg domain.StrategyConfig) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal strategy config: %w", err)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}

// RunID returns a compact base58 id for a config key.
// Keys that are not hex are encoded as-is.
func RunID(configKey string) string {
	raw, err := hex.DecodeString(configKey)
	if err != nil {
		raw = []byte(configKey)
	}
	if len(raw) > 16 {
		raw = raw[:16]
	}
	return base58.Encode(raw)
}
