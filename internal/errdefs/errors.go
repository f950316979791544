// Package errdefs provides coded errors shared across the pipeline.
package errdefs

import (
	"errors"
	"fmt"
)

// Code classifies an error for handling and diagnostics.
type Code string

const (
	// User/config errors: surfaced to the UI, operation aborted, prior state unchanged.
	CodeInvalidAreaConfig Code = "invalid_area_config"
	CodeNotFound          Code = "not_found"
	CodeCorruptLayout     Code = "corrupt_layout"

	// Transient I/O errors: logged, the single attempt is abandoned, pipeline continues.
	CodeCaptureFailed Code = "capture_failed"
	CodeOcrFailed     Code = "ocr_failed"
	CodeSpeechFailed  Code = "speech_failed"

	CodeUnknown Code = "unknown"
)

// Error is the base error type with a structured code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Cause != nil {
		s += ": " + e.Cause.Error()
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error under a code.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error under a code with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// CodeOf extracts the code from an error chain, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsTransient reports whether the error is a transient I/O failure rather
// than a user/config error. Transient failures never abort the pipeline;
// the next tick or trigger is the retry mechanism.
func IsTransient(err error) bool {
	switch CodeOf(err) {
	case CodeCaptureFailed, CodeOcrFailed, CodeSpeechFailed:
		return true
	default:
		return false
	}
}
