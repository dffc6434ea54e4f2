package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes is the canonical content hash for uploaded files.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
