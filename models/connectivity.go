package models

import "time"

// ConnectivityState is the process-wide snapshot the UI binds its sync
// indicator to. It is published to subscribers on every transition and after
// every drain pass.
type ConnectivityState struct {
	// Online mirrors the monitor's current view of remote reachability.
	Online bool `json:"online"`

	// Syncing is true while the reconciler has an active drain pass.
	Syncing bool `json:"syncing"`

	// PendingCount is the number of queue entries with status PENDING.
	PendingCount int `json:"pending_count"`

	// FailedCount is the number of permanently failed entries awaiting
	// manual inspection.
	FailedCount int `json:"failed_count"`

	// LastSyncAt is the completion time of the most recent drain pass, zero
	// if no pass has completed yet.
	LastSyncAt time.Time `json:"last_sync_at,omitempty"`
}
