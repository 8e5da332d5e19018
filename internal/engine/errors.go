package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/laborsync/internal/planner"
)

// ErrorCode categorizes run failures.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates a missing credential or invalid options.
	// Detected before any I/O.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// ErrCodeTransport indicates a fetch failed: network, timeout, non-2xx
	// status or cancellation.
	ErrCodeTransport ErrorCode = "TRANSPORT_ERROR"

	// ErrCodeMalformedResponse indicates a payload lacked the expected
	// top-level structure.
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"

	// ErrCodeStorage indicates the table file could not be read, parsed or
	// written.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
)

// RunError is a failed run. The table file is untouched whenever a RunError
// is returned, except that a StorageError from Save may leave a stray
// temporary file behind on crash.
type RunError struct {
	Code    ErrorCode
	Message string

	// Window is the request window involved, for transport and malformed
	// response errors.
	Window *planner.Window

	// Payload is the raw offending body for malformed response errors.
	Payload []byte

	Err error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Window != nil {
		msg += fmt.Sprintf(" (window=%s)", e.Window)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of the RunError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsConfigurationError reports whether err is a configuration failure.
func IsConfigurationError(err error) bool {
	return CodeOf(err) == ErrCodeConfiguration
}

// IsTransportError reports whether err is a transport failure.
func IsTransportError(err error) bool {
	return CodeOf(err) == ErrCodeTransport
}

// IsMalformedResponse reports whether err is a malformed response failure.
func IsMalformedResponse(err error) bool {
	return CodeOf(err) == ErrCodeMalformedResponse
}

// IsStorageError reports whether err is a storage failure.
func IsStorageError(err error) bool {
	return CodeOf(err) == ErrCodeStorage
}

func configurationError(msg string, err error) *RunError {
	return &RunError{Code: ErrCodeConfiguration, Message: msg, Err: err}
}

func storageError(msg string, err error) *RunError {
	return &RunError{Code: ErrCodeStorage, Message: msg, Err: err}
}

func transportError(w planner.Window, err error) *RunError {
	return &RunError{Code: ErrCodeTransport, Message: "fetch failed", Window: &w, Err: err}
}

func malformedError(w *planner.Window, payload []byte, err error) *RunError {
	return &RunError{
		Code:    ErrCodeMalformedResponse,
		Message: "upstream response is malformed",
		Window:  w,
		Payload: payload,
		Err:     err,
	}
}
