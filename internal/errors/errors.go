// Package errors provides custom error types for the investtrack API.
// All service-layer errors should use AppError so that every failure reaches
// the client as a structured body and never leaks internal details.
package errors

import (
	"net/http"
	"runtime"
	"strconv"
)

// FieldError describes a single offending field of a ValidationError.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Field      string       `json:"field,omitempty"`
	Fields     []FieldError `json:"fields,omitempty"`
	StatusCode int          `json:"-"`
	Internal   error        `json:"-"`
	stack      []string
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Stack returns the call frames captured when the error was derived from a sentinel.
func (e *AppError) Stack() []string { return e.stack }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
		stack:      callers(),
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
		stack:      callers(),
	}
}

// WithField creates a DUPLICATE_KEY style error naming the offending field.
func WithField(sentinel *AppError, field, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Field:      field,
		StatusCode: sentinel.StatusCode,
		stack:      callers(),
	}
}

// Validation builds a VALIDATION_ERROR listing every offending field.
func Validation(fields ...FieldError) *AppError {
	msg := ErrValidation.Message
	if len(fields) > 0 {
		msg = fields[0].Message
		for _, f := range fields[1:] {
			msg += ", " + f.Message
		}
	}
	return &AppError{
		Code:       ErrValidation.Code,
		Message:    msg,
		Fields:     fields,
		StatusCode: ErrValidation.StatusCode,
		stack:      callers(),
	}
}

func callers() []string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var out []string
	for {
		f, more := frames.Next()
		out = append(out, f.Function+" "+f.File+":"+strconv.Itoa(f.Line))
		if !more {
			break
		}
	}
	return out
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrTokenRevoked       = &AppError{Code: "TOKEN_REVOKED", Message: "Token has been revoked", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Not authorized", StatusCode: http.StatusForbidden}
	ErrInvalidResetToken  = &AppError{Code: "INVALID_RESET_TOKEN", Message: "Invalid or expired password reset token", StatusCode: http.StatusBadRequest}
	ErrInvalidAPIKey      = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
	ErrNotConfigured      = &AppError{Code: "NOT_CONFIGURED", Message: "Endpoint is not configured", StatusCode: http.StatusServiceUnavailable}
)

// General errors.
var (
	ErrInvalidInput      = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrValidation        = &AppError{Code: "VALIDATION_ERROR", Message: "Validation failed", StatusCode: http.StatusBadRequest}
	ErrInvalidType       = &AppError{Code: "INVALID_TYPE", Message: "Invalid type", StatusCode: http.StatusBadRequest}
	ErrDuplicateKey      = &AppError{Code: "DUPLICATE_KEY", Message: "Duplicate value", StatusCode: http.StatusConflict}
	ErrInvalidOperation  = &AppError{Code: "INVALID_OPERATION", Message: "Operation not allowed", StatusCode: http.StatusBadRequest}
	ErrVersionConflict   = &AppError{Code: "VERSION_CONFLICT", Message: "Document has been modified", StatusCode: http.StatusConflict}
	ErrNotFound          = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer    = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrUnsupportedMedia  = &AppError{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Unsupported file type", StatusCode: http.StatusUnsupportedMediaType}
	ErrFileTooLarge      = &AppError{Code: "FILE_TOO_LARGE", Message: "File exceeds the upload limit", StatusCode: http.StatusRequestEntityTooLarge}
	ErrAttachmentMissing = &AppError{Code: "FILE_NOT_ATTACHED", Message: "File not attached", StatusCode: http.StatusBadRequest}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_KEY", Message: "A user with this email already exists", Field: "email", StatusCode: http.StatusConflict}
)

// Firm errors.
var (
	ErrFirmNotFound     = &AppError{Code: "FIRM_NOT_FOUND", Message: "Firm not found", StatusCode: http.StatusNotFound}
	ErrFirmNotBroker    = &AppError{Code: "INVALID_OPERATION", Message: "Firm is not a broker", StatusCode: http.StatusBadRequest}
	ErrFirmNotInvestor  = &AppError{Code: "INVALID_OPERATION", Message: "Firm is not an investor", StatusCode: http.StatusBadRequest}
	ErrFactsheetMissing = &AppError{Code: "FACTSHEET_NOT_FOUND", Message: "Fund factsheet not found", StatusCode: http.StatusNotFound}
)

// Member errors.
var (
	ErrMemberNotFound     = &AppError{Code: "MEMBER_NOT_FOUND", Message: "Member not found", StatusCode: http.StatusNotFound}
	ErrAlreadyInFirm      = &AppError{Code: "INVALID_OPERATION", Message: "Member is already in the target firm", StatusCode: http.StatusBadRequest}
	ErrMemberFirmMismatch = &AppError{Code: "INVALID_OPERATION", Message: "Member does not belong to the given firm", StatusCode: http.StatusBadRequest}
)

// Coverage, interaction, event and file errors.
var (
	ErrCoverageNotFound    = &AppError{Code: "COVERAGE_NOT_FOUND", Message: "Coverage not found", StatusCode: http.StatusNotFound}
	ErrInteractionNotFound = &AppError{Code: "INTERACTION_NOT_FOUND", Message: "Interaction not found", StatusCode: http.StatusNotFound}
	ErrEventNotFound       = &AppError{Code: "EVENT_NOT_FOUND", Message: "Event not found", StatusCode: http.StatusNotFound}
	ErrFileNotFound        = &AppError{Code: "FILE_NOT_FOUND", Message: "File not found", StatusCode: http.StatusNotFound}
)
