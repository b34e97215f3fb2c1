// Package password implements the salted SHA-256 credential format
// ("salt:hash", both lowercase hex) and the password strength policy.
package password

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/redskie/bamaco/internal/dependencies/random"
)

// SaltBytes is the number of random bytes in a generated salt
const SaltBytes = 16

// Hasher produces and checks "salt:hash" credentials
type Hasher struct {
	digest Digester
	random random.Random
}

// NewHasher creates a Hasher. A nil digester selects the pure-Go fallback.
func NewHasher(digest Digester, rnd random.Random) *Hasher {
	if digest == nil {
		digest = FallbackDigester{}
	}
	return &Hasher{digest: digest, random: rnd}
}

// Hash hashes password under a freshly generated salt
func (h *Hasher) Hash(password string) string {
	return h.HashWithSalt(password, h.NewSalt())
}

// HashWithSalt hashes password under salt. It is deterministic.
func (h *Hasher) HashWithSalt(password, salt string) string {
	sum := h.digest.Digest([]byte(salt + password))
	return salt + ":" + hex.EncodeToString(sum)
}

// NewSalt returns SaltBytes random bytes, hex-encoded
func (h *Hasher) NewSalt() string {
	return hex.EncodeToString(h.random.Bytes(SaltBytes))
}

// Verify recomputes the hash with the stored salt and compares the full
// "salt:hash" string. A malformed stored value never verifies.
func (h *Hasher) Verify(password, stored string) bool {
	salt, expected, ok := strings.Cut(stored, ":")
	if !ok || salt == "" || expected == "" {
		return false
	}
	computed := h.HashWithSalt(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
}

// IsCanonical reports whether stored is in "salt:hash" form
func IsCanonical(stored string) bool {
	salt, hash, ok := strings.Cut(stored, ":")
	return ok && salt != "" && hash != ""
}
