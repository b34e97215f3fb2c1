package model

import (
	"errors"
	"strings"
)

// Outcomes returned by the auth core and the registries
var (
	ErrValidation        = errors.New("validation failed")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrTransientStore    = errors.New("store temporarily unavailable")
	ErrAccountLocked     = errors.New("account temporarily locked")
)

// Storage errors
var (
	ErrIdentityNotFound     = errors.New("identity not found")
	ErrIdentityExists       = errors.New("identity already exists")
	ErrGuildNotFound        = errors.New("guild not found")
	ErrGuildExists          = errors.New("guild already exists")
	ErrAchievementNotFound  = errors.New("achievement not found")
	ErrArticleNotFound      = errors.New("article not found")
	ErrRequestNotFound      = errors.New("queue request not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrReportNotFound       = errors.New("report not found")
)

// Registry errors
var (
	ErrAlreadyAssigned = errors.New("already assigned to another player")
	ErrRequestHandled  = errors.New("queue request already handled")
)

// ValidationError lists every rule an input broke
type ValidationError struct {
	Field      string
	Violations []string
}

// NewValidationError creates a ValidationError for one field
func NewValidationError(field string, violations ...string) *ValidationError {
	return &ValidationError{Field: field, Violations: violations}
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "invalid " + e.Field
	}
	return strings.Join(e.Violations, "; ")
}

// Is makes every ValidationError match ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
