package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewDataInsufficientError("window has 3 points"),
			expected: "[DATA_INSUFFICIENT] window has 3 points",
		},
		{
			name:     "with cause",
			err:      NewInputFormatError("bad plate design", fmt.Errorf("row 3")),
			expected: "[INPUT_FORMAT] bad plate design: row 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_IsSentinel(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"data insufficient", NewDataInsufficientError("x"), ErrDataInsufficient},
		{"non convergence", NewNonConvergenceError("hill", errors.New("maxfev")), ErrNonConvergence},
		{"grouping", NewGroupingError("strain S1", "no ancestral rows"), ErrGroupingFailure},
		{"input format", NewInputFormatError("x", nil), ErrInputFormat},
		{"group panic", NewGroupPanicError("E1_P1_WT", "boom"), ErrGroupPanic},
		{"wrapped", fmt.Errorf("group E1: %w", NewDataInsufficientError("x")), ErrDataInsufficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}

	assert.NotErrorIs(t, NewDataInsufficientError("x"), ErrNonConvergence)
	assert.NotErrorIs(t, NewStorageError("x", nil), ErrInputFormat)
}

func TestAppError_UnwrapCause(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("write results", cause)

	assert.ErrorIs(t, err, cause)

	var appErr *AppError
	require.ErrorAs(t, fmt.Errorf("outer: %w", err), &appErr)
	assert.Equal(t, ErrTypeStorage, appErr.Type)
}

func TestAppError_WithContext(t *testing.T) {
	err := NewGroupingError("S1", "baseline missing").WithContext("rows", 12)

	assert.Equal(t, "S1", err.Context["group"])
	assert.Equal(t, 12, err.Context["rows"])

	bare := &AppError{Type: ErrTypeConfig}
	bare.WithContext("key", "value")
	assert.Equal(t, "value", bare.Context["key"])
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrTypeValidation, TypeOf(NewAppValidationError("bad")))
	assert.Equal(t, ErrTypeConfig, TypeOf(fmt.Errorf("load: %w", NewConfigError("bad", nil))))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
	assert.Equal(t, ErrorType(""), TypeOf(nil))
}
