package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeDataInsufficient ErrorType = "DATA_INSUFFICIENT"
	ErrTypeNonConvergence   ErrorType = "NON_CONVERGENCE"
	ErrTypeGrouping         ErrorType = "GROUPING_FAILURE"
	ErrTypeInputFormat      ErrorType = "INPUT_FORMAT"
	ErrTypeStorage          ErrorType = "STORAGE"
	ErrTypeValidation       ErrorType = "VALIDATION"
	ErrTypeConfig           ErrorType = "CONFIG"
	ErrTypeGroupPanic       ErrorType = "GROUP_PANIC"
)

// Sentinels for errors.Is. Per-group analysis failures are carried inside the
// group's result, never returned from a batch.
var (
	// ErrDataInsufficient: too few points for a window, or no point below the normalization anchor.
	ErrDataInsufficient = errors.New("data insufficient")
	// ErrNonConvergence: the curve fit ran out of its evaluation budget.
	ErrNonConvergence = errors.New("optimizer did not converge")
	// ErrGroupingFailure: a per-strain aggregate is missing its baseline subgroup.
	ErrGroupingFailure = errors.New("grouping failure")
	// ErrInputFormat: malformed input files or group data.
	ErrInputFormat = errors.New("input format error")
	// ErrGroupPanic: the analysis of one group panicked.
	ErrGroupPanic = errors.New("group analysis panicked")
)

var sentinels = map[ErrorType]error{
	ErrTypeDataInsufficient: ErrDataInsufficient,
	ErrTypeNonConvergence:   ErrNonConvergence,
	ErrTypeGrouping:         ErrGroupingFailure,
	ErrTypeInputFormat:      ErrInputFormat,
	ErrTypeGroupPanic:       ErrGroupPanic,
}

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the error's type.
func (e *AppError) Is(target error) bool {
	s, ok := sentinels[e.Type]
	return ok && s == target
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewDataInsufficientError creates a data-insufficient error
func NewDataInsufficientError(message string) *AppError {
	return NewAppError(ErrTypeDataInsufficient, message, nil)
}

// NewNonConvergenceError wraps an optimizer failure
func NewNonConvergenceError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNonConvergence, message, cause)
}

// NewGroupingError creates a grouping failure for the named group
func NewGroupingError(group, message string) *AppError {
	return NewAppError(ErrTypeGrouping, message, nil).WithContext("group", group)
}

// NewInputFormatError creates a parsing error
func NewInputFormatError(message string, cause error) *AppError {
	return NewAppError(ErrTypeInputFormat, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewGroupPanicError records a recovered panic for the named group
func NewGroupPanicError(group string, recovered any) *AppError {
	return NewAppError(ErrTypeGroupPanic, fmt.Sprintf("analysis of %s panicked: %v", group, recovered), nil).
		WithContext("group", group)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the ErrorType of the first AppError in the chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}
