package idhash

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeVersionID computes a deterministic strategy version id using SHA256.
// Formula: SHA256(name|canonical snapshot JSON)
// Returns hex-encoded hash (64 characters). Saving the same graph under the
// same name always yields the same version id, which is what makes saved
// snapshots diffable.
func ComputeVersionID(name string, canonicalSnapshot []byte) string {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{'|'})
	h.Write(canonicalSnapshot)
	return hex.EncodeToString(h.Sum(nil))
}
