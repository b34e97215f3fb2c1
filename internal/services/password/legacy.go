package password

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Format identifies how a stored credential was produced
type Format int

const (
	FormatUnknown Format = iota
	// FormatSalted is the canonical "salt:hash" form
	FormatSalted
	// FormatStaticSalt is hex(sha256(password + legacyStaticSalt)) with no salt prefix
	FormatStaticSalt
	// FormatBcrypt is a bcrypt hash written by older admin tooling
	FormatBcrypt
)

const legacyStaticSalt = "bamaco_salt_2026"

// DetectFormat classifies a stored credential
func DetectFormat(stored string) Format {
	switch {
	case IsCanonical(stored):
		return FormatSalted
	case strings.HasPrefix(stored, "$2a$"), strings.HasPrefix(stored, "$2b$"), strings.HasPrefix(stored, "$2y$"):
		return FormatBcrypt
	case len(stored) == 64 && isHex(stored):
		return FormatStaticSalt
	default:
		return FormatUnknown
	}
}

// VerifyAny checks password against a stored credential in any known format.
// needsUpgrade is true when the password matched a legacy format and the
// credential should be rewritten in canonical form.
func (h *Hasher) VerifyAny(password, stored string) (ok, needsUpgrade bool) {
	switch DetectFormat(stored) {
	case FormatSalted:
		return h.Verify(password, stored), false
	case FormatStaticSalt:
		sum := h.digest.Digest([]byte(password + legacyStaticSalt))
		computed := hex.EncodeToString(sum)
		ok = subtle.ConstantTimeCompare([]byte(computed), []byte(strings.ToLower(stored))) == 1
		return ok, ok
	case FormatBcrypt:
		ok = bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
		return ok, ok
	default:
		return false, false
	}
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
