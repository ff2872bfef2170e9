// Package sha256 derives stable cache keys from content.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher produces hex SHA-256 digests.
type Hasher struct {
	prefix string
}

// New returns a hasher whose keys start with prefix.
func New(prefix string) *Hasher {
	return &Hasher{prefix: prefix}
}

// Hash returns the hex digest of data.
func (h *Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key returns prefix plus the digest of s.
func (h *Hasher) Key(s string) string {
	return h.prefix + h.Hash([]byte(s))
}
