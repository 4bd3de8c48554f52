package types

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Engine error codes
const (
	ErrStepFailed      ErrorCode = "STEP_FAILED"
	ErrConfiguration   ErrorCode = "CONFIGURATION"
	ErrCyclicGraph     ErrorCode = "CYCLIC_GRAPH"
	ErrNodeNotFound    ErrorCode = "NODE_NOT_FOUND"
	ErrCancelled       ErrorCode = "CANCELLED"
	ErrMalformedEvent  ErrorCode = "MALFORMED_EVENT"
	ErrPatternNotFound ErrorCode = "PATTERN_NOT_FOUND"
	ErrStoreFailure    ErrorCode = "STORE_FAILURE"
	ErrChannelClosed   ErrorCode = "CHANNEL_CLOSED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	NodeID    string    `json:"node_id,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithNode records the graph node the error originated from.
func (e *Error) WithNode(nodeID string) *Error {
	e.NodeID = nodeID
	return e
}

// WithAttempts records how many attempts were made before giving up.
func (e *Error) WithAttempts(attempts int) *Error {
	e.Attempts = attempts
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// AsError extracts a *Error from an error chain. Returns nil, false if the
// chain contains no *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	if e, ok := AsError(err); ok {
		return e.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// IsCancelled reports whether err represents a consumer-initiated stop,
// either via the engine's own CANCELLED code or a context error.
func IsCancelled(err error) bool {
	if IsCode(err, ErrCancelled) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
