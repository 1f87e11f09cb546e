package service

import "errors"

// Sentinel errors returned by the façade and reconciler. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrUnknownCollection is returned when an operation names a collection
	// that has not been registered.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrValidation is returned when an entity payload fails validation
	// before it is accepted into the local store.
	ErrValidation = errors.New("payload validation failed")

	// ErrTypeMismatch is returned when the entity value passed to a façade
	// operation is not the concrete type registered for the collection.
	ErrTypeMismatch = errors.New("entity type does not match collection")

	// ErrInconsistentState is returned when a queue entry requires a server
	// key that was never assigned and no pending CREATE can still provide
	// one. Always terminal: the entry is marked FAILED and logged with its
	// data for manual inspection.
	ErrInconsistentState = errors.New("server key unresolvable for queue entry")
)
