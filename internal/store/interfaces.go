package store

import (
	"context"
	"time"

	"github.com/fieldline-crm/fieldline/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// RecordRepository is the durable keyed store for domain records. Each call
// is atomic with respect to the underlying database; multi-call operations
// (record write + queue append) must be composed via [Storages.InTx].
type RecordRepository interface {
	// Put inserts record when record.LocalKey is zero (assigning and
	// returning a fresh local key) and overwrites the existing row otherwise.
	// The record's secondary-index rows are replaced with indexes in the same
	// statement scope, so index membership always matches the stored payload.
	Put(ctx context.Context, record *models.Record, indexes []models.IndexEntry) (int64, error)

	// Get returns the record stored at localKey. Returns ErrRecordNotFound
	// if the key is absent.
	Get(ctx context.Context, collection string, localKey int64) (models.Record, error)

	// GetAll returns every record of the collection, unordered.
	GetAll(ctx context.Context, collection string) ([]models.Record, error)

	// GetByIndex returns the records whose index entry for indexName equals
	// value.
	GetByIndex(ctx context.Context, collection, indexName, value string) ([]models.Record, error)

	// GetByServerKey returns the record carrying serverKey, if any.
	GetByServerKey(ctx context.Context, collection, serverKey string) (models.Record, error)

	// Remove deletes the record and its index rows. Removing an absent key
	// is a no-op success.
	Remove(ctx context.Context, collection string, localKey int64) error

	// SetServerKey back-fills the remotely assigned identifier onto the
	// record at localKey. Returns ErrRecordNotFound if the record is gone.
	SetServerKey(ctx context.Context, collection string, localKey int64, serverKey string) error
}

// QueueRepository is the durable, ordered log of not-yet-confirmed remote
// intents.
type QueueRepository interface {
	// Enqueue appends a new PENDING entry and returns its store-assigned
	// entry id. Entries are never merged: two UPDATE intents for the same
	// record produce two entries, replayed in order.
	Enqueue(ctx context.Context, entry *models.QueueEntry) (int64, error)

	// ListPending returns all PENDING entries ordered by entry id ascending.
	ListPending(ctx context.Context) ([]models.QueueEntry, error)

	// ListFailed returns all permanently FAILED entries, oldest first, for
	// the sync-issues view.
	ListFailed(ctx context.Context) ([]models.QueueEntry, error)

	// MarkStatus transitions the entry to status, recording lastError (empty
	// clears it).
	MarkStatus(ctx context.Context, entryID int64, status models.EntryStatus, lastError string) error

	// IncrementAttempt bumps the entry's attempt counter after a failed
	// remote call and returns the new count.
	IncrementAttempt(ctx context.Context, entryID int64) (int, error)

	// CountPending returns the number of PENDING entries.
	CountPending(ctx context.Context) (int, error)

	// CountFailed returns the number of FAILED entries.
	CountFailed(ctx context.Context) (int, error)

	// HasPendingForRecord reports whether any PENDING or IN_FLIGHT entry
	// references localKey.
	HasPendingForRecord(ctx context.Context, collection string, localKey int64) (bool, error)

	// PurgeDone removes all DONE entries; called after each drain pass.
	PurgeDone(ctx context.Context) error

	// RequeueInFlight resets IN_FLIGHT entries back to PENDING and returns
	// how many were reset. An entry is IN_FLIGHT only while its remote call
	// is outstanding, so any entry found in that state at startup was
	// stranded by a crash and must be made visible to the next drain pass.
	RequeueInFlight(ctx context.Context) (int64, error)
}

// MetaRepository stores sync bookkeeping values (currently only the last
// successful drain timestamp).
type MetaRepository interface {
	LastSyncAt(ctx context.Context) (time.Time, error)
	SetLastSyncAt(ctx context.Context, at time.Time) error
}
