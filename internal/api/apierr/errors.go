package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/redskie/bamaco/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeNotFound             = "NOT_FOUND"
	CodeIdentityNotFound     = "IDENTITY_NOT_FOUND"
	CodeIdentityExists       = "IDENTITY_EXISTS"
	CodeGuildNotFound        = "GUILD_NOT_FOUND"
	CodeGuildExists          = "GUILD_EXISTS"
	CodeAchievementNotFound  = "ACHIEVEMENT_NOT_FOUND"
	CodeArticleNotFound      = "ARTICLE_NOT_FOUND"
	CodeRequestNotFound      = "REQUEST_NOT_FOUND"
	CodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	CodeReportNotFound       = "REPORT_NOT_FOUND"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status WriteError would use for err
func Status(err error) int {
	return toHTTPError(err).status
}

// sentinels maps store errors to their wire codes. The remote client maps
// the codes back, so errors.Is works across the HTTP boundary.
var sentinels = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{model.ErrIdentityNotFound, http.StatusNotFound, CodeIdentityNotFound, "Identity not found"},
	{model.ErrIdentityExists, http.StatusConflict, CodeIdentityExists, "Identity already exists"},
	{model.ErrGuildNotFound, http.StatusNotFound, CodeGuildNotFound, "Guild not found"},
	{model.ErrGuildExists, http.StatusConflict, CodeGuildExists, "Guild already exists"},
	{model.ErrAchievementNotFound, http.StatusNotFound, CodeAchievementNotFound, "Achievement not found"},
	{model.ErrArticleNotFound, http.StatusNotFound, CodeArticleNotFound, "Article not found"},
	{model.ErrRequestNotFound, http.StatusNotFound, CodeRequestNotFound, "Queue request not found"},
	{model.ErrNotificationNotFound, http.StatusNotFound, CodeNotificationNotFound, "Notification not found"},
	{model.ErrReportNotFound, http.StatusNotFound, CodeReportNotFound, "Report not found"},
	{model.ErrNotAuthorized, http.StatusForbidden, CodeForbidden, "Not authorized"},
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return &httpError{http.StatusBadRequest, APIError{CodeValidationFailed, ve.Error()}}
	}

	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return &httpError{s.status, APIError{s.code, s.message}}
		}
	}
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// Sentinel returns the model error for a wire code, or nil if the code has none
func Sentinel(code string) error {
	for _, s := range sentinels {
		if s.code == code {
			return s.err
		}
	}
	return nil
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewNotFoundError creates a not found error for unknown routes
func NewNotFoundError() error {
	return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Not found"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
