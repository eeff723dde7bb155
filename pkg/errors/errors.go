// Package errors provides the structured error type shared by VoiceDesk packages.
//
// ContextualError records which component failed, what it was doing, and the
// HTTP status the backend answered with, if any. It implements Unwrap so the
// sentinel errors of each package stay reachable through errors.Is.
//
// Usage:
//
//	err := errors.New("transport", "SendWhole", transport.ErrTimeout)
//	err = err.WithStatusCode(504).WithDetails(map[string]any{"bytes": 5000})
package errors

import (
	stderrors "errors"
	"fmt"
)

// ContextualError is a structured error describing where and why a request or
// device operation failed.
type ContextualError struct {
	// Component identifies the package that produced the error (e.g. "transport", "capture").
	Component string

	// Operation describes what was being done when the error occurred.
	Operation string

	// StatusCode is the HTTP status returned by the backend, or 0.
	StatusCode int

	// Details holds optional structured metadata about the error.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a ContextualError with the given component, operation, and cause.
func New(component, operation string, cause error) *ContextualError {
	return &ContextualError{
		Component: component,
		Operation: operation,
		Cause:     cause,
	}
}

// Error returns a human-readable representation of the error.
func (e *ContextualError) Error() string {
	base := fmt.Sprintf("[%s] %s", e.Component, e.Operation)

	if e.StatusCode != 0 {
		base += fmt.Sprintf(" (status %d)", e.StatusCode)
	}

	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}

	return base
}

// Unwrap returns the underlying cause, enabling use with errors.Is and errors.As.
func (e *ContextualError) Unwrap() error {
	return e.Cause
}

// WithStatusCode sets the status code and returns the same error for chaining.
func (e *ContextualError) WithStatusCode(code int) *ContextualError {
	e.StatusCode = code
	return e
}

// WithDetails sets the details map and returns the same error for chaining.
func (e *ContextualError) WithDetails(details map[string]any) *ContextualError {
	e.Details = details
	return e
}

// StatusCode returns the first non-zero status code found in err's chain.
func StatusCode(err error) int {
	for err != nil {
		var ce *ContextualError
		if !stderrors.As(err, &ce) {
			return 0
		}
		if ce.StatusCode != 0 {
			return ce.StatusCode
		}
		err = ce.Cause
	}
	return 0
}

// Operation returns "component.operation" for the outermost ContextualError in
// err's chain, or an empty string.
func Operation(err error) string {
	var ce *ContextualError
	if stderrors.As(err, &ce) {
		return ce.Component + "." + ce.Operation
	}
	return ""
}
