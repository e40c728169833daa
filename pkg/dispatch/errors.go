package dispatch

import (
	"errors"
	"fmt"
)

// Common errors returned by RunBounded.
var (
	// ErrInvalidConcurrency is returned for a negative concurrency.
	ErrInvalidConcurrency = errors.New("concurrency must be positive")

	// ErrNilOperation is returned when no operation is supplied.
	ErrNilOperation = errors.New("operation is nil")

	// ErrDispatcherFault is matched by errors.Is when an operation broke its contract.
	ErrDispatcherFault = errors.New("dispatcher fault")
)

// FaultError reports an operation that panicked instead of returning a result.
// The batch is aborted and no results are returned.
type FaultError struct {
	// Index is the item the operation was processing.
	Index int

	// Value is the recovered panic value.
	Value any

	// Stack is the goroutine stack at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *FaultError) Error() string {
	return fmt.Sprintf("dispatcher fault at index %d: operation panicked: %v", e.Index, e.Value)
}

// Unwrap implements error unwrapping for errors.Is/As.
// If the panic value was itself an error it is exposed as well.
func (e *FaultError) Unwrap() []error {
	if err, ok := e.Value.(error); ok {
		return []error{ErrDispatcherFault, err}
	}
	return []error{ErrDispatcherFault}
}
