// Package errors defines common error types for the application.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application.
const (
	CodeUnknown          = "UNKNOWN_ERROR"
	CodeMalformedInput   = "MALFORMED_INPUT"
	CodeMalformedProfile = "MALFORMED_PROFILE"
	CodeParseError       = "PARSE_ERROR"
	CodeEmptyInput       = "EMPTY_INPUT"
	CodeInputTooLarge    = "INPUT_TOO_LARGE"
	CodeNotFound         = "NOT_FOUND"
	CodeConfigError      = "CONFIG_ERROR"
	CodeStorageError     = "STORAGE_ERROR"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	// ErrMalformedInput covers columnar arrays of unequal length, missing
	// required columns and values of the wrong type.
	ErrMalformedInput = New(CodeMalformedInput, "malformed input")

	// ErrMalformedProfile covers stacks that are missing their outermost frame
	// or have holes in their depth sequence.
	ErrMalformedProfile = New(CodeMalformedProfile, "malformed profile")

	ErrParseError  = New(CodeParseError, "parse error")
	ErrEmptyInput  = New(CodeEmptyInput, "empty input")
	ErrTooLarge    = New(CodeInputTooLarge, "input too large")
	ErrNotFound    = New(CodeNotFound, "resource not found")
	ErrConfigError = New(CodeConfigError, "configuration error")
	ErrStorage     = New(CodeStorageError, "storage error")
)

// MalformedInput returns a MALFORMED_INPUT error with a formatted message.
func MalformedInput(format string, args ...interface{}) *AppError {
	return Newf(CodeMalformedInput, format, args...)
}

// MalformedProfile returns a MALFORMED_PROFILE error with a formatted message.
func MalformedProfile(format string, args ...interface{}) *AppError {
	return Newf(CodeMalformedProfile, format, args...)
}

// IsMalformedInput checks if the error is a malformed input error.
func IsMalformedInput(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}

// IsMalformedProfile checks if the error is a malformed profile error.
func IsMalformedProfile(err error) bool {
	return errors.Is(err, ErrMalformedProfile)
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
