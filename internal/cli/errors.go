package cli

import (
	"errors"
	"strings"

	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/storage/remote"
)

// Messages shown for business outcomes
const (
	MsgIncorrectPassword = "Incorrect password"
	MsgAccountNotFound   = "Profile not found. Please create a profile first."
	MsgAccountExists     = "A profile with this friend code already exists. Please log in instead."
	MsgNotAuthorized     = "You don't have permission to do that"
	MsgAccountLocked     = "Too many failed attempts. Please try again later."
	MsgGuildExists       = "A guild with this ID already exists"
	MsgTryAgain          = "Something went wrong, please try again"
)

// Message turns an error into the text shown to the user. Store failures
// all read the same; anything else is shown as is.
func Message(err error) string {
	var ve *model.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve) && len(ve.Violations) > 0:
		return strings.Join(ve.Violations, "\n")
	case errors.Is(err, model.ErrIncorrectPassword):
		return MsgIncorrectPassword
	case errors.Is(err, model.ErrAccountNotFound):
		return MsgAccountNotFound
	case errors.Is(err, model.ErrAccountExists):
		return MsgAccountExists
	case errors.Is(err, model.ErrAccountLocked):
		return MsgAccountLocked
	case errors.Is(err, model.ErrGuildExists):
		return MsgGuildExists
	case errors.Is(err, model.ErrNotAuthorized):
		return MsgNotAuthorized
	case errors.Is(err, model.ErrTransientStore), errors.Is(err, remote.ErrUnavailable):
		return MsgTryAgain
	}

	return capitalize(err.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
