package idhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeArtifactID computes a deterministic hash of a rendered strategy
// script. Formula: SHA256(script bytes), hex-encoded (64 characters).
// Byte-identical scripts always hash identically, so run history can join
// backtests to exact script versions.
func ComputeArtifactID(script string) string {
	hash := sha256.Sum256([]byte(script))
	return hex.EncodeToString(hash[:])
}
