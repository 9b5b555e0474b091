// Package errors provides a coarse-grained classification for
// programming failures — invariant violations and unreachable
// branches, as distinct from the domain failures carried by
// core.Failure. These are always logged and always surface as a 500.
package errors

import "fmt"

// ErrorType provides a coarse category for MockError values.
type ErrorType int

const (
	InternalServer ErrorType = iota
	InvariantViolation
	StoreCorruption
)

// MockError represents an internal error in the mock server itself,
// never a response the real service would send.
type MockError struct {
	Type   ErrorType
	Detail string
}

func (e *MockError) Error() string {
	return e.Detail
}

// New is a convenience function for creating a new MockError.
func New(errType ErrorType, msg string, args ...interface{}) error {
	return &MockError{
		Type:   errType,
		Detail: fmt.Sprintf(msg, args...),
	}
}

// Is reports whether err is a MockError of the given type.
func Is(err error, errType ErrorType) bool {
	mErr, ok := err.(*MockError)
	if !ok {
		return false
	}
	return mErr.Type == errType
}

func InternalServerError(msg string, args ...interface{}) error {
	return New(InternalServer, msg, args...)
}

func InvariantViolationError(msg string, args ...interface{}) error {
	return New(InvariantViolation, msg, args...)
}

func StoreCorruptionError(msg string, args ...interface{}) error {
	return New(StoreCorruption, msg, args...)
}
