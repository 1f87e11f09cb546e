package adapter

import "errors"

// Sentinel errors mapped from transport failures and HTTP status codes.
// Callers match them with [errors.Is].
var (
	// ErrRemoteUnavailable indicates a network-level failure or timeout: the
	// request never produced an HTTP response. The reconciler treats this as
	// the expected, retried case.
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrRemoteRejected indicates the backend responded with a non-2xx
	// application status. Retried the same way as ErrRemoteUnavailable, but
	// the distinction is preserved in the entry's last error for the
	// sync-issues view.
	ErrRemoteRejected = errors.New("remote rejected request")

	// ErrUnauthorized indicates HTTP 401: the bearer token is missing or
	// stale.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrNotFound indicates HTTP 404: the server key does not exist on the
	// backend.
	ErrNotFound = errors.New("remote record not found")
)
