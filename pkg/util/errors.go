// Package util provides utility functions and common error types.
package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the engine's failure taxonomy. Query-time and
// apply-time errors are isolated to the route or route-group that caused
// them; only validation errors abort a whole invocation.
var (
	ErrValidationFailed    = errors.New("validation failed")
	ErrUpstreamUnavailable = errors.New("upstream API unavailable")
	ErrGraphNotFound       = errors.New("graph not found")
	ErrUnknownNode         = errors.New("unknown node")
	ErrNoMatch             = errors.New("no matching prefixes")
	ErrUnsupportedPathType = errors.New("unsupported path type")
	ErrAmbiguousAddress    = errors.New("ambiguous platform address")
	ErrBackendFailed       = errors.New("backend operation failed")
	ErrInvalidParameter    = errors.New("invalid parameter")
)

// ValidationError represents one or more validation failures
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddError adds an error message unconditionally
func (v *ValidationBuilder) AddError(message string) *ValidationBuilder {
	v.errors = append(v.errors, message)
	return v
}

// AddErrorf adds a formatted error message
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// UpstreamError wraps a failed Jalapeno API call with the endpoint context.
// Unwraps to one of the query-time sentinels so callers can classify with
// errors.Is.
type UpstreamError struct {
	Endpoint string // logical endpoint, e.g. "graph shortest_path" or "l3vpn by-rt"
	Status   int    // HTTP status, 0 for transport failures
	Message  string // error body from the API, or transport error text
	Kind     error  // one of ErrUpstreamUnavailable, ErrGraphNotFound, ErrUnknownNode, ErrNoMatch
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Kind
}

// BackendError records a single failed dataplane operation.
type BackendError struct {
	Platform  string
	Operation string // "add" or "remove"
	Prefix    string
	Table     uint32
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s %s (table %d): %v", e.Platform, e.Operation, e.Prefix, e.Table, e.Err)
}

func (e *BackendError) Unwrap() error {
	return ErrBackendFailed
}
