package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/laborsync/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess           = 0 // Successful execution, including a sync with no change
	ExitFailure           = 1 // Other failure (invalid table file, replay mismatch, etc.)
	ExitCommandError      = 2 // Command error (bad flags, unknown run id, etc.)
	ExitConfigError       = 3 // Configuration error (missing credential, invalid settings)
	ExitTransportError    = 4 // Upstream could not be reached or refused the request
	ExitMalformedResponse = 5 // Upstream answered without the expected structure
	ExitStorageError      = 6 // Table file could not be read or written
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (one of the Exit* constants)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// exitCodeFor maps an engine failure code to a process exit code.
func exitCodeFor(code engine.ErrorCode) int {
	switch code {
	case engine.ErrCodeConfiguration:
		return ExitConfigError
	case engine.ErrCodeTransport:
		return ExitTransportError
	case engine.ErrCodeMalformedResponse:
		return ExitMalformedResponse
	case engine.ErrCodeStorage:
		return ExitStorageError
	default:
		return ExitFailure
	}
}

// textView is implemented by results that render their own text output.
type textView interface {
	WriteText(w io.Writer) error
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	if v, ok := data.(textView); ok {
		return v.WriteText(f.Writer)
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format. In text mode details are
// rendered when they know how to render themselves.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	if v, ok := details.(textView); ok {
		if err := v.WriteText(f.Writer); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return err
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
