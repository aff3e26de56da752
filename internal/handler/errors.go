package handler

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no handler is registered under a name.
	ErrNotFound = errors.New("handler not found")

	// ErrUnimplemented is returned by Base.Process and by registrations
	// whose factory does not produce a usable handler.
	ErrUnimplemented = errors.New("handler not implemented")

	// ErrTimeout is returned when the domain logic misses its deadline.
	ErrTimeout = errors.New("handler timed out")

	// ErrDuplicateHandler is returned when a name is registered twice.
	ErrDuplicateHandler = errors.New("handler already registered")

	// ErrInvalidName is returned for malformed logical names.
	ErrInvalidName = errors.New("invalid handler name")

	// ErrRegistrySealed is returned when registering after Seal.
	ErrRegistrySealed = errors.New("handler registry is sealed")

	// ErrRegistryInit wraps any failure while building the registry at
	// startup.
	ErrRegistryInit = errors.New("handler registry initialization failed")

	// ErrHandlerPanic is returned when the domain logic panics.
	ErrHandlerPanic = errors.New("handler panicked")
)

// Coder is implemented by errors that carry their own wire code.
type Coder interface {
	Code() string
}

// Error is a domain error with an explicit wire code. Handlers return it to
// control the code the caller sees.
type Error struct {
	ErrCode string
	Message string
}

// NewError creates a coded domain error.
func NewError(code, message string) *Error {
	return &Error{ErrCode: code, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.ErrCode
	}
	return fmt.Sprintf("%s: %s", e.ErrCode, e.Message)
}

// Code returns the wire code.
func (e *Error) Code() string {
	return e.ErrCode
}

// ExecError wraps a failure raised by a handler's domain logic so every
// failure reaches the dispatcher in the same shape.
type ExecError struct {
	Name string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("handler %q failed: %v", e.Name, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
