package model

import "strings"

// FriendCodeLength is the digit count of a fully validated friend code
const FriendCodeLength = 15

// FriendCode is the normalized numeric identifier of a player
type FriendCode string

// NormalizeFriendCode strips every non-digit character.
// Two inputs that differ only in formatting normalize to the same code.
func NormalizeFriendCode(raw string) FriendCode {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return FriendCode(b.String())
}

// Validate checks the code is a complete friend code
func (fc FriendCode) Validate() error {
	if fc == "" {
		return NewValidationError("friendCode", "Friend code is required")
	}
	if len(fc) != FriendCodeLength {
		return NewValidationError("friendCode", "Friend code must be 15 digits")
	}
	return nil
}

// ParseFriendCode normalizes and validates in one step
func ParseFriendCode(raw string) (FriendCode, error) {
	fc := NormalizeFriendCode(raw)
	if err := fc.Validate(); err != nil {
		return "", err
	}
	return fc, nil
}
