package streams

import (
	"errors"
	"fmt"
)

// StreamError represents a domain-specific error
type StreamError struct {
	Code    string
	Message string
	Cause   error
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeInvalidConfig  = "INVALID_CONFIG"
	ErrCodeDuplicateName  = "DUPLICATE_NAME"
	ErrCodeStreamNotFound = "STREAM_NOT_FOUND"
	ErrCodeRegistryError  = "REGISTRY_ERROR"
	ErrCodeInvalidParams  = "INVALID_PARAMS"
	ErrCodeProbeFailed    = "PROBE_FAILED"
)

// NewStreamError creates a new stream error
func NewStreamError(code, message string, cause error) *StreamError {
	return &StreamError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrDuplicateName returns the error registries report when name is taken.
func ErrDuplicateName(name string) *StreamError {
	return NewStreamError(ErrCodeDuplicateName, fmt.Sprintf("stream '%s' already exists", name), nil)
}

// ErrNotFound returns the error registries report when name is unknown.
func ErrNotFound(name string) *StreamError {
	return NewStreamError(ErrCodeStreamNotFound, fmt.Sprintf("stream '%s' not found", name), nil)
}

// HasCode reports whether any StreamError in err's chain carries code.
func HasCode(err error, code string) bool {
	var streamErr *StreamError
	if errors.As(err, &streamErr) {
		return streamErr.Code == code
	}
	return false
}
