package errors

import (
	"errors"
	"fmt"
)

// Standard errors
var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrValidation is returned when input is malformed; rejected before any side effect
	ErrValidation = errors.New("invalid input")

	// ErrProvider is returned when the text/embedding generation provider fails
	ErrProvider = errors.New("generation provider failure")

	// ErrIndex is returned when the vector index fails
	ErrIndex = errors.New("vector index failure")

	// ErrStorage is returned when the persistence layer fails
	ErrStorage = errors.New("storage failure")

	// ErrParse is returned when structured provider output cannot be parsed
	ErrParse = errors.New("malformed structured output")
)

// Wrap wraps an error with additional context
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Classify attaches a sentinel class to an underlying cause, so callers can
// dispatch with errors.Is while keeping the original error chain intact.
func Classify(sentinel, cause error, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf(format+": %w: %w", append(args, sentinel, cause)...)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience function that wraps errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target, and if so, sets
// target to that error value and returns true. Otherwise, it returns false.
// This is a convenience function that wraps errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
