// Package dherr defines the unified error taxonomy used throughout dhstore:
// I/O failures, on-disk corruption, and invalid caller input, so
// callers can switch on kind without string matching. The codec
// package reports decode failures with its own DecodeError, and the
// chunker returns its reader's errors unchanged.
package dherr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// IOError wraps an underlying OS or stream failure with a short static
// context string, e.g. "can't open blob file".
type IOError struct {
	Context string
	Cause   error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }

// IO wraps cause as an IOError, attaching a stack trace via pkg/errors so
// the original call site survives log output.
func IO(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &IOError{Context: context, Cause: pkgerrors.WithStack(cause)}
}

// CorruptedStoreError reports that the persistent layout violates one of
// its own invariants: an unreadable digest in a filename, a shard of the
// wrong length, bad magic in a serialized object, a missing root object,
// or a log target that is not a permanode.
type CorruptedStoreError struct {
	Context string
	Cause   error
}

func (e *CorruptedStoreError) Error() string {
	if e.Cause == nil {
		return "corrupted store: " + e.Context
	}
	return fmt.Sprintf("corrupted store: %s: %v", e.Context, e.Cause)
}

func (e *CorruptedStoreError) Unwrap() error { return e.Cause }

// Corrupt builds a CorruptedStoreError, optionally wrapping a cause.
func Corrupt(context string, cause error) error {
	var wrapped error
	if cause != nil {
		wrapped = pkgerrors.WithStack(cause)
	}
	return &CorruptedStoreError{Context: context, Cause: wrapped}
}

// InvalidInputError reports a malformed caller-supplied argument: an
// unparsable digest, a negative depth, and the like.
type InvalidInputError struct {
	Context string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Context
}

// InvalidInput builds an InvalidInputError.
func InvalidInput(format string, args ...interface{}) error {
	return &InvalidInputError{Context: fmt.Sprintf(format, args...)}
}

// IsIOError reports whether err (or something it wraps) is an IOError.
func IsIOError(err error) bool {
	var target *IOError
	return errors.As(err, &target)
}

// IsCorruptedStoreError reports whether err (or something it wraps) is a
// CorruptedStoreError.
func IsCorruptedStoreError(err error) bool {
	var target *CorruptedStoreError
	return errors.As(err, &target)
}

// IsInvalidInputError reports whether err is an InvalidInputError.
func IsInvalidInputError(err error) bool {
	_, ok := err.(*InvalidInputError)
	return ok
}
