package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// rawTokenBytes is the entropy of a freshly minted credential (256 bits).
const rawTokenBytes = 32

// NewRawToken mints an opaque credential: base64url over random bytes. The
// same primitive backs access tokens and invitation tokens. The raw value is
// handed to the client once and never persisted.
func NewRawToken() (string, error) {
	buf := make([]byte, rawTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken derives the storage digest of a raw credential. Deterministic and
// unsalted: the digest doubles as the equality lookup key, so two calls with
// the same input must agree.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
