// Package errors provides the structured error taxonomy of the service
// substrate, with cause preservation and errors.Is/As support.
package errors

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for handling and metrics.
type Kind string

const (
	// KindInvalidConstruction indicates a service could not be constructed
	// (empty name, missing registry).
	KindInvalidConstruction Kind = "invalid_construction"
	// KindDuplicateRegistration indicates the service name is already taken.
	KindDuplicateRegistration Kind = "duplicate_registration"
	// KindValidation indicates invalid arguments to a runtime operation.
	KindValidation Kind = "validation"
	// KindCallTimeout indicates a blocking run/call exceeded its deadline.
	KindCallTimeout Kind = "call_timeout"
	// KindExecution indicates the submitted unit of work failed.
	KindExecution Kind = "execution"
	// KindShutdownStage indicates a service's shutdown stage hook failed.
	KindShutdownStage Kind = "shutdown_stage"
)

// Error is a structured error with kind, message, and optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds a context field to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// InvalidConstruction creates a construction-time error.
func InvalidConstruction(message string) *Error {
	return &Error{Kind: KindInvalidConstruction, Message: message}
}

// DuplicateRegistration creates an error for an already-registered name.
func DuplicateRegistration(name string) *Error {
	e := &Error{Kind: KindDuplicateRegistration, Message: "service name is already registered"}
	return e.WithContext("service", name)
}

// Validation creates an invalid-argument error.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// CallTimeout creates a deadline-exceeded error for a blocking call.
func CallTimeout(message string, cause error) *Error {
	return &Error{Kind: KindCallTimeout, Message: message, Cause: cause}
}

// Execution wraps a failure raised by a submitted unit of work.
func Execution(message string, cause error) *Error {
	return &Error{Kind: KindExecution, Message: message, Cause: cause}
}

// ShutdownStage wraps a failure raised by a service's shutdown stage hook.
func ShutdownStage(service, stage string, cause error) *Error {
	e := &Error{Kind: KindShutdownStage, Message: "shutdown stage hook failed", Cause: cause}
	return e.WithContext("service", service).WithContext("stage", stage)
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var structured *Error
	if errors.As(err, &structured) {
		return structured.Kind == kind
	}
	return false
}

// AsStructured converts any error into a structured *Error.
// If err is already an *Error, it is returned unchanged.
// Otherwise it is wrapped as an execution error.
func AsStructured(err error) *Error {
	if err == nil {
		return nil
	}
	var structured *Error
	if errors.As(err, &structured) {
		return structured
	}
	return Execution("internal error", err)
}
