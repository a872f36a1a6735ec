// Package sha256 computes payload checksums recorded for each saved file.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements grabber.Hasher.
type Hasher struct{}

// New returns a Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex encoded SHA-256 digest of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
