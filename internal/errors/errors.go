// Package errors carries the structured error type shared by the adapters
// and the CLI. Domain packages return their own typed errors; these codes
// classify failures at the application boundary.
package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the original code
// when one is present
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode reclassifies an existing error under a code
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Error codes at the application boundary
const (
	CodeConfigInvalid = "CONFIG_INVALID" // bad environment or flag values
	CodeDataInvalid   = "DATA_INVALID"   // a table failed cleaning or validation
	CodeColumnMissing = "COLUMN_MISSING" // a required column is absent
	CodeStatsError    = "STATS_ERROR"    // a test could not be computed
	CodeRenderError   = "RENDER_ERROR"   // report or chart rendering failed
	CodeStorageError  = "STORAGE_ERROR"  // the ledger rejected a write or read
	CodeNotFound      = "NOT_FOUND"      // a run or artifact does not exist
	CodeInternal      = "INTERNAL_ERROR"
)

// Common error constructors

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DataInvalid(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeDataInvalid,
		Message: message,
		Cause:   cause,
	}
}

func ColumnMissing(message string) *AppError {
	return New(CodeColumnMissing, message)
}

func StatsError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeStatsError,
		Message: message,
		Cause:   cause,
	}
}

func RenderError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeRenderError,
		Message: message,
		Cause:   cause,
	}
}

func StorageError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeStorageError,
		Message: message,
		Cause:   cause,
	}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}
