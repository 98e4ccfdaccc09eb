// Package errors provides structured error types for lanegrid.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the API and the library
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages (one consolidated reason per import)
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The import pipeline distinguishes four families of failure:
//
//   - SCHEMA_ERROR: a required column is missing. Fatal, the pipeline never starts.
//   - PARSE_ERROR: a single line or row is malformed. Fatal for delimited text
//     (the 1-based line number is attached), skipped with a warning for spreadsheets.
//   - ORPHAN_REFERENCE: a sub-action names an unknown parent. Never returned to
//     callers; the row is dropped and logged with this code.
//   - STORE_ERROR: a model-store operation failed (including read-only targets).
//     Fatal, the surrounding session is aborted.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeSchema, "required column %q not found", "Name")
//	if errors.Is(err, errors.ErrCodeSchema) {
//	    // Handle missing column
//	}
//
//	// Attach a line number to a parse failure
//	err := errors.AtLine(errors.ErrCodeParse, 7, cause, "invalid quoting")
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input errors
	ErrCodeSchema       Code = "SCHEMA_ERROR"
	ErrCodeParse        Code = "PARSE_ERROR"
	ErrCodeIO           Code = "IO_ERROR"
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidFmt   Code = "INVALID_FORMAT"

	// Graph construction
	ErrCodeOrphan Code = "ORPHAN_REFERENCE"

	// Model store errors
	ErrCodeStore    Code = "STORE_ERROR"
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeConflict Code = "CONFLICT"

	// Control and internal errors
	ErrCodeCanceled    Code = "CANCELED"
	ErrCodeUnsupported Code = "UNSUPPORTED"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Line    int    // 1-based source line, 0 when not applicable
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// AtLine creates an Error tagged with a 1-based source line number.
// cause may be nil.
func AtLine(code Code, line int, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Line:    line,
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetLine returns the line number attached to the first *Error in the chain
// that carries one, or 0.
func GetLine(err error) int {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return 0
		}
		if e.Line > 0 {
			return e.Line
		}
		err = e.Cause
	}
	return 0
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Line > 0 {
			return fmt.Sprintf("line %d: %s", e.Line, e.Message)
		}
		return e.Message
	}
	return err.Error()
}
