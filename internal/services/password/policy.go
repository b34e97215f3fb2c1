package password

import (
	"strings"
	"unicode/utf8"

	"github.com/redskie/bamaco/internal/model"
)

// MinLength is the shortest accepted password
const MinLength = 8

// SpecialCharacters is the punctuation set a password must draw from
const SpecialCharacters = `!@#$%^&*(),.?":{}|<>`

// Policy violation messages, reported in this order
const (
	ViolationLength  = "Password must be at least 8 characters long"
	ViolationUpper   = "Password must contain at least one uppercase letter"
	ViolationNumber  = "Password must contain at least one number"
	ViolationSpecial = "Password must contain at least one special character"
)

// Validate checks every strength rule independently and reports all failures
func Validate(pw string) error {
	var violations []string

	if utf8.RuneCountInString(pw) < MinLength {
		violations = append(violations, ViolationLength)
	}
	if !strings.ContainsAny(pw, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		violations = append(violations, ViolationUpper)
	}
	if !strings.ContainsAny(pw, "0123456789") {
		violations = append(violations, ViolationNumber)
	}
	if !strings.ContainsAny(pw, SpecialCharacters) {
		violations = append(violations, ViolationSpecial)
	}

	if len(violations) > 0 {
		return model.NewValidationError("password", violations...)
	}
	return nil
}
