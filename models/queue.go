package models

import (
	"encoding/json"
	"time"
)

// Operation is the kind of remote mutation a queue entry represents.
type Operation string

const (
	OperationCreate Operation = "CREATE"
	OperationUpdate Operation = "UPDATE"
	OperationDelete Operation = "DELETE"
)

// EntryStatus is the lifecycle state of a queue entry.
//
// PENDING entries are waiting for a drain pass. The reconciler moves an entry
// to IN_FLIGHT while its remote call is outstanding, then to DONE on success
// (after which PurgeDone removes it), back to PENDING on a retryable failure,
// or to FAILED once the attempt budget is exhausted or the entry is
// unrecoverable. FAILED entries are kept for inspection and never retried.
type EntryStatus string

const (
	StatusPending  EntryStatus = "PENDING"
	StatusInFlight EntryStatus = "IN_FLIGHT"
	StatusDone     EntryStatus = "DONE"
	StatusFailed   EntryStatus = "FAILED"
)

// QueueEntry is one durable, not-yet-confirmed remote intent. EntryID is
// assigned by the store and monotonically increasing; entries for the same
// LocalKey are always replayed in EntryID order.
type QueueEntry struct {
	EntryID    int64       `json:"entry_id"`
	Collection string      `json:"collection"`
	Operation  Operation   `json:"operation"`

	// LocalKey identifies the record this intent mutates.
	LocalKey int64 `json:"local_key"`

	// ServerKey is required for UPDATE/DELETE once known. For entries
	// enqueued before the record's CREATE was confirmed it is empty and the
	// reconciler resolves it from the record at replay time.
	ServerKey string `json:"server_key,omitempty"`

	// Payload is the snapshot of record data at enqueue time; nil for DELETE.
	Payload json.RawMessage `json:"payload,omitempty"`

	// IdempotencyKey is sent with the remote call so a replay after a lost
	// response does not double-apply the mutation.
	IdempotencyKey string `json:"idempotency_key"`

	AttemptCount int         `json:"attempt_count"`
	Status       EntryStatus `json:"status"`
	LastError    string      `json:"last_error,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
