package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrStorageFailure wraps any error from the underlying SQLite layer
	// (quota, corruption, constraint violation). Surfaced synchronously to
	// the caller; never retried automatically.
	ErrStorageFailure = errors.New("local storage failure")

	// ErrRecordNotFound is returned when a read or update targets a local
	// key (or server key) that does not exist in the database.
	ErrRecordNotFound = errors.New("record not found")

	// ErrEntryNotFound is returned when a queue operation targets an entry
	// id that does not exist.
	ErrEntryNotFound = errors.New("queue entry not found")
)
