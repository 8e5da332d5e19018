package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/laborsync/internal/planner"
)

func TestRunError_Classification(t *testing.T) {
	cause := errors.New("cause")
	w := planner.Window{Start: 2020, End: 2024}

	tests := []struct {
		name string
		err  error
		code ErrorCode
		is   func(error) bool
	}{
		{"configuration", configurationError("missing credential", nil), ErrCodeConfiguration, IsConfigurationError},
		{"transport", transportError(w, cause), ErrCodeTransport, IsTransportError},
		{"malformed", malformedError(&w, []byte("{}"), cause), ErrCodeMalformedResponse, IsMalformedResponse},
		{"storage", storageError("save table", cause), ErrCodeStorage, IsStorageError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.Equal(t, tt.code, CodeOf(wrapped))
			assert.True(t, tt.is(wrapped))
		})
	}

	assert.Equal(t, ErrorCode(""), CodeOf(cause))
	assert.False(t, IsStorageError(nil))
}

func TestRunError_Message(t *testing.T) {
	w := planner.Window{Start: 2020, End: 2024}
	err := transportError(w, errors.New("connection reset"))
	assert.Equal(t, "TRANSPORT_ERROR: fetch failed (window=2020-2024): connection reset", err.Error())

	err = configurationError("missing upstream credential", nil)
	assert.Equal(t, "CONFIGURATION_ERROR: missing upstream credential", err.Error())
}

func TestRunError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	assert.ErrorIs(t, storageError("save table", cause), cause)
}
