package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrStoreUnavailable is returned when the backing database cannot be
	// reached at all: the file could not be opened, the handle was closed,
	// or the schema could not be prepared. Callers should degrade to their
	// in-memory state instead of crashing.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound is returned when a requested record does not exist in
	// the store. This is a generic version of the collection-specific not
	// found errors (e.g., ErrLookupNotFound, ErrCardNotFound).
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique record (e.g., a user with the same email).
	ErrDuplicate = errors.New("record already exists")

	// ErrInvalidEntity is returned when a record fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid record")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Collection-specific "not found" errors

	// ErrLookupNotFound indicates that a word has no lookup record.
	ErrLookupNotFound = fmt.Errorf("%w: lookup record", ErrNotFound)

	// ErrCardNotFound indicates that a word has no flashcard progress.
	ErrCardNotFound = fmt.Errorf("%w: card progress", ErrNotFound)

	// ErrReviewNotFound indicates that a word is not in the review queue.
	ErrReviewNotFound = fmt.Errorf("%w: review entry", ErrNotFound)

	// ErrCheckpointNotFound indicates that a collection has never
	// completed a sync, so no watermark exists yet.
	ErrCheckpointNotFound = fmt.Errorf("%w: sync checkpoint", ErrNotFound)

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// Collection-specific "duplicate" errors

	// ErrEmailExists indicates that a user with the given email already
	// exists. Returned when registering with an email that is in use.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailableError checks if the error indicates the store itself is
// unreachable, as opposed to a per-record failure.
func IsUnavailableError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Collection string // The collection name (e.g., "words", "flashcard")
	Operation  string // The operation that failed (e.g., "put", "get_all")
	Message    string // Error message
	Err        error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Collection,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Collection, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given collection, operation, message, and wrapped error.
func NewStoreError(collection, operation, message string, err error) *StoreError {
	return &StoreError{
		Collection: collection,
		Operation:  operation,
		Message:    message,
		Err:        err,
	}
}
