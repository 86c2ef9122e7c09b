package domain

import (
	"errors"
	"fmt"
	"time"
)

// AppError is the structured error type used throughout the module.
type AppError struct {
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Details    any       `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Cause      error     `json:"-"` // Original error, not serialized
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error wrapping.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes for the different failure categories.
const (
	// ErrIO covers unreadable or missing artifact files. Fatal to the
	// calling stage's update for this run; the persisted document is left
	// untouched.
	ErrIO = "IO_ERROR"

	// ErrCorruptManifest means the status document exists but cannot be
	// parsed. Never auto-reset: overwriting history would silently break
	// change detection for every section.
	ErrCorruptManifest = "CORRUPT_MANIFEST"

	// ErrPartialStage means a stage completed some but not all of its
	// artifacts. The stage marks its section partial and keeps prior hashes.
	ErrPartialStage = "PARTIAL_STAGE"

	// ErrInvalidSection means a section path does not address any subtree
	// of the document.
	ErrInvalidSection = "INVALID_SECTION"

	ErrInvalidInput     = "INVALID_INPUT"     // 400 Bad Request
	ErrValidationFailed = "VALIDATION_FAILED" // 422 Unprocessable Entity
	ErrNotFound         = "NOT_FOUND"         // 404 Not Found
	ErrInternal         = "INTERNAL_ERROR"    // 500 Internal Server Error
	ErrRateLimit        = "RATE_LIMIT"        // 429 Too Many Requests
)

// NewAppError creates a new AppError with the specified parameters.
func NewAppError(code, message string, statusCode int, details any) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
		Timestamp:  time.Now(),
	}
}

// NewAppErrorWithCause creates a new AppError with an underlying cause.
func NewAppErrorWithCause(code, message string, statusCode int, cause error, details any) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
		Timestamp:  time.Now(),
		Cause:      cause,
	}
}

func hasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsCorruptManifest checks if the error is a corrupt-document error.
func IsCorruptManifest(err error) bool { return hasCode(err, ErrCorruptManifest) }

// IsIOError checks if the error is an artifact I/O error.
func IsIOError(err error) bool { return hasCode(err, ErrIO) }

// IsInvalidSection checks if the error is an unknown-section-path error.
func IsInvalidSection(err error) bool { return hasCode(err, ErrInvalidSection) }

// IsNotFound checks if the error is a not-found error.
func IsNotFound(err error) bool { return hasCode(err, ErrNotFound) }
