// Package core provides the memory store that orchestrates embedding
// generation, the vector index and the retention model.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested memory was not found.
	ErrNotFound = errors.New("memory not found")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingFailed indicates that embedding generation failed.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrStorageOperation indicates that a vector index operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrGenerationFailed indicates that a text-generation call failed.
	ErrGenerationFailed = errors.New("text generation failed")
)

// MemoryError wraps errors with operation context, making failures
// attributable to the operation that produced them.
//
// Error() returns "memorybank: <Op>: <Err>". Unwrap exposes the underlying
// error so errors.Is and errors.As see through the wrapper.
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns the formatted error message.
func (e *MemoryError) Error() string {
	return fmt.Sprintf("memorybank: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a MemoryError wrapping err. If err is nil, it
// returns nil, so call sites can wrap unconditionally:
//
//	return NewMemoryError("Store", err)
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{
		Op:  op,
		Err: err,
	}
}
