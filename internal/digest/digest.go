// Package digest computes content hashes used only to check determinism
// properties (two optimizer runs on identical input producing identical
// dumps) — never to persist or cache compiled output, which would
// contradict this system's statelessness across runs.
package digest

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// OfString returns the hex-encoded BLAKE2b-256 digest of s.
func OfString(s string) string {
	sum := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Equal reports whether a and b hash identically.
func Equal(a, b string) bool {
	return OfString(a) == OfString(b)
}
