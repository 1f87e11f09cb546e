package service

import (
	"context"
	"time"

	"github.com/fieldline-crm/fieldline/models"
)

// CollectionService is the offline-first CRUD surface UI code consumes. All
// write operations are synchronous with respect to local state (the caller
// sees the change before any network round trip) and asynchronous with
// respect to remote confirmation, which happens through the mutation queue
// and the reconciler.
type CollectionService interface {
	// Create validates entity, stores it optimistically with a fresh local
	// key and no server key, appends a CREATE intent to the mutation queue
	// in the same transaction, nudges the reconciler if online, and returns
	// the stored record immediately.
	Create(ctx context.Context, collection string, entity any) (models.Record, error)

	// Update merges the non-zero fields of changes onto the stored record,
	// rewrites it locally, and appends an UPDATE intent carrying the merged
	// snapshot and the record's current server key (if any).
	Update(ctx context.Context, collection string, localKey int64, changes any) (models.Record, error)

	// Delete removes the record locally right away. A DELETE intent is
	// enqueued only when the record has a server key; a record that was
	// never confirmed remotely needs no remote call.
	Delete(ctx context.Context, collection string, localKey int64) error

	// Get reads the record from the local store. Never touches the network.
	Get(ctx context.Context, collection string, localKey int64) (models.Record, error)

	// List reads every record of the collection from the local store.
	// Never touches the network.
	List(ctx context.Context, collection string) ([]models.Record, error)

	// ListByIndex reads the records whose secondary index entry equals
	// value.
	ListByIndex(ctx context.Context, collection, indexName, value string) ([]models.Record, error)

	// Refresh re-fetches the collection from the backend and reconciles the
	// local cache with authoritative remote state. Records with queued
	// intents keep their local state. No-ops while offline.
	Refresh(ctx context.Context, collection string) error

	// Collections returns the registered collection names.
	Collections() []string

	// Status returns the current connectivity and sync snapshot.
	Status(ctx context.Context) (models.ConnectivityState, error)

	// SyncIssues returns the permanently failed queue entries so they can be
	// surfaced to the user instead of being silently lost.
	SyncIssues(ctx context.Context) ([]models.QueueEntry, error)
}

// Reconciler drains the mutation queue against the backend.
type Reconciler interface {
	// Drain runs one pass over the pending queue entries: batched dispatch,
	// retry accounting, server-key backfill. No-ops when offline or when a
	// pass is already in progress. Individual entry failures never abort the
	// pass.
	Drain(ctx context.Context) error

	// Syncing reports whether a drain pass is currently active.
	Syncing() bool

	// SetOnline feeds the monitor's current view of reachability into the
	// drain guard. Switching to false also cancels any scheduled retry pass.
	SetOnline(online bool)
}

// Monitor is the single source of truth for online/offline state.
type Monitor interface {
	// Start launches the background probe loop. Any previously running loop
	// is stopped first.
	Start(ctx context.Context, interval time.Duration)

	// Stop terminates the probe loop and blocks until it has exited.
	Stop()

	// Online returns the current reachability view.
	Online() bool

	// SetOnline overrides the probed state, triggering the same transitions
	// a probe result would. Used for forced-offline mode and tests.
	SetOnline(online bool)

	// Subscribe registers a listener for connectivity snapshots. The
	// returned cancel func removes the subscription. Listeners that fall
	// behind miss intermediate snapshots rather than blocking the monitor.
	Subscribe() (<-chan models.ConnectivityState, func())

	// State builds the current connectivity and sync snapshot.
	State(ctx context.Context) (models.ConnectivityState, error)
}

// RefreshJob periodically re-fetches all collections from the backend while
// online.
type RefreshJob interface {
	// Start launches the background refresh goroutine. It refreshes every
	// interval; zero or negative falls back to a 5 minute default. Any
	// previously running job is stopped before the new one begins.
	Start(ctx context.Context, interval time.Duration)

	// Stop signals the background goroutine to exit and blocks until it has
	// fully terminated.
	Stop()
}
