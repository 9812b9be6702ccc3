// Package auth verifies the admin bearer token.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HashedPrefix marks a configured token that is already a SHA-256 hex digest,
// so the plaintext does not have to live in the config file.
const HashedPrefix = "sha256:"

// HashToken returns the SHA-256 hex digest of the trimmed token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

// Verifier checks presented tokens against the configured admin token.
type Verifier struct {
	digest []byte
}

// NewVerifier accepts either a plaintext token or HashedPrefix followed by its digest.
// It returns nil for an empty token.
func NewVerifier(configured string) *Verifier {
	configured = strings.TrimSpace(configured)
	if configured == "" {
		return nil
	}
	if d, ok := strings.CutPrefix(configured, HashedPrefix); ok {
		return &Verifier{digest: []byte(strings.ToLower(d))}
	}
	return &Verifier{digest: []byte(HashToken(configured))}
}

// Verify compares digests, so the comparison time does not depend on the token length.
func (v *Verifier) Verify(presented string) bool {
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(presented)), v.digest) == 1
}
