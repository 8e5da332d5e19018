package parser

import (
	"errors"
	"fmt"
	"strings"
)

// maxPayloadInError caps how much of the payload Error() prints.
const maxPayloadInError = 256

// MalformedResponseError reports a payload without the expected structure.
// Payload holds the full raw bytes for diagnostics.
type MalformedResponseError struct {
	Reason   string
	Status   string   // upstream "status" field, if it decoded
	Messages []string // upstream "message" list, if it decoded
	Payload  []byte
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "malformed response: %s", e.Reason)
	if e.Status != "" {
		fmt.Fprintf(&b, " (status=%s)", e.Status)
	}
	if len(e.Messages) > 0 {
		fmt.Fprintf(&b, " messages=%q", e.Messages)
	}
	snippet := e.Payload
	if len(snippet) > maxPayloadInError {
		snippet = snippet[:maxPayloadInError]
	}
	fmt.Fprintf(&b, " payload=%q", snippet)
	return b.String()
}

// IsMalformed reports whether err is or wraps a *MalformedResponseError.
func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}
