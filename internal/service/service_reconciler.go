package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fieldline-crm/fieldline/internal/adapter"
	"github.com/fieldline-crm/fieldline/internal/config"
	"github.com/fieldline-crm/fieldline/internal/logger"
	"github.com/fieldline-crm/fieldline/internal/store"
	"github.com/fieldline-crm/fieldline/models"
)

// recordRef identifies the local record a queue entry mutates. Entries
// sharing a recordRef must be replayed in entry-id order.
type recordRef struct {
	collection string
	localKey   int64
}

type reconciler struct {
	storages *store.Storages
	remote   adapter.RemoteAPI
	cfg      config.ClientSync
	logger   *logger.Logger

	online  atomic.Bool
	syncing atomic.Bool

	mu         sync.Mutex
	retryTimer *time.Timer

	// notify is invoked whenever the sync snapshot changes (pass start, pass
	// end). Set by the service wiring; nil-safe.
	notify func()
}

// NewReconciler constructs the queue-draining reconciler. It starts offline;
// the connectivity monitor feeds reachability via SetOnline and triggers
// Drain on the offline-to-online edge.
func NewReconciler(storages *store.Storages, remote adapter.RemoteAPI, cfg config.ClientSync, logger *logger.Logger) Reconciler {
	return &reconciler{
		storages: storages,
		remote:   remote,
		cfg:      cfg,
		logger:   logger,
	}
}

// Syncing implements [Reconciler].
func (r *reconciler) Syncing() bool {
	return r.syncing.Load()
}

// SetOnline implements [Reconciler]. Going offline cancels the scheduled
// retry pass; an in-flight pass is allowed to finish.
func (r *reconciler) SetOnline(online bool) {
	r.online.Store(online)
	if !online {
		r.cancelRetry()
	}
}

// Drain implements [Reconciler]. One pass: list pending entries, settle the
// superseded ones without network access, then dispatch the rest in batches.
// Batches run sequentially and entries within a batch concurrently, except that entries
// for the same record are chained so per-record enqueue order is preserved.
func (r *reconciler) Drain(ctx context.Context) error {
	if !r.online.Load() {
		return nil
	}
	if !r.syncing.CompareAndSwap(false, true) {
		// a pass is already running; it will pick up anything we would have
		return nil
	}

	r.notifyState()
	defer func() {
		r.syncing.Store(false)
		r.notifyState()
	}()

	log := r.logger.GetChildLogger()

	entries, err := r.storages.Queue.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending entries: %w", err)
	}

	entries, err = r.settleSuperseded(ctx, entries)
	if err != nil {
		return err
	}

	if len(entries) > 0 {
		r.drainBatches(ctx, entries)
	}

	if err := r.storages.Queue.PurgeDone(ctx); err != nil {
		log.Err(err).Str("func", "reconciler.Drain").Msg("failed to purge done entries")
	}
	if err := r.storages.Meta.SetLastSyncAt(ctx, time.Now().UTC()); err != nil {
		log.Err(err).Str("func", "reconciler.Drain").Msg("failed to stamp last sync timestamp")
	}

	pending, err := r.storages.Queue.CountPending(ctx)
	if err != nil {
		return fmt.Errorf("count pending after pass: %w", err)
	}
	if pending > 0 && r.online.Load() {
		// leftovers are retryable failures; back off instead of hot-looping
		r.scheduleRetry()
	}

	return nil
}

// settleSuperseded marks entries DONE that a later queued DELETE for a
// never-confirmed record makes moot: the record is already gone locally and
// the backend has never heard of it, so neither the earlier intents nor the
// DELETE itself need a remote call. Returns the entries that still need
// dispatch.
func (r *reconciler) settleSuperseded(ctx context.Context, entries []models.QueueEntry) ([]models.QueueEntry, error) {
	superseded := make(map[recordRef]int64) // record -> entry id of the closing DELETE
	for _, entry := range entries {
		if entry.Operation == models.OperationDelete && entry.ServerKey == "" {
			superseded[recordRef{entry.Collection, entry.LocalKey}] = entry.EntryID
		}
	}
	if len(superseded) == 0 {
		return entries, nil
	}

	remaining := entries[:0]
	for _, entry := range entries {
		closingID, ok := superseded[recordRef{entry.Collection, entry.LocalKey}]
		if !ok || entry.EntryID > closingID {
			remaining = append(remaining, entry)
			continue
		}

		if err := r.storages.Queue.MarkStatus(ctx, entry.EntryID, models.StatusDone, ""); err != nil {
			return nil, fmt.Errorf("settle superseded entry %d: %w", entry.EntryID, err)
		}
		r.logger.Debug().
			Str("func", "reconciler.settleSuperseded").
			Int64("entry_id", entry.EntryID).
			Str("operation", string(entry.Operation)).
			Int64("local_key", entry.LocalKey).
			Msg("entry superseded by local delete, settled without remote call")
	}

	return remaining, nil
}

// drainBatches dispatches entries in fixed-size batches. Within a batch,
// entries for distinct records run concurrently; entries for the same record
// form a chain processed in order. A failed entry blocks the rest of its
// record's chain for this pass; the blocked entries stay PENDING with no
// attempt charged.
func (r *reconciler) drainBatches(ctx context.Context, entries []models.QueueEntry) {
	var (
		blockedMu sync.Mutex
		blocked   = make(map[recordRef]bool)
	)

	isBlocked := func(ref recordRef) bool {
		blockedMu.Lock()
		defer blockedMu.Unlock()
		return blocked[ref]
	}
	block := func(ref recordRef) {
		blockedMu.Lock()
		defer blockedMu.Unlock()
		blocked[ref] = true
	}

	batchSize := r.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}

	for start := 0; start < len(entries); start += batchSize {
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}

		var wg sync.WaitGroup
		for _, chain := range groupByRecord(entries[start:end]) {
			wg.Add(1)
			go func(chain []models.QueueEntry) {
				defer wg.Done()
				for _, entry := range chain {
					ref := recordRef{entry.Collection, entry.LocalKey}
					if isBlocked(ref) {
						return
					}
					if !r.processEntry(ctx, entry) {
						block(ref)
						return
					}
				}
			}(chain)
		}
		wg.Wait()
	}
}

// groupByRecord splits a batch into per-record chains, preserving entry-id
// order both across chains (by first entry) and within each chain.
func groupByRecord(batch []models.QueueEntry) [][]models.QueueEntry {
	var (
		order  []recordRef
		chains = make(map[recordRef][]models.QueueEntry, len(batch))
	)

	for _, entry := range batch {
		ref := recordRef{entry.Collection, entry.LocalKey}
		if _, seen := chains[ref]; !seen {
			order = append(order, ref)
		}
		chains[ref] = append(chains[ref], entry)
	}

	grouped := make([][]models.QueueEntry, 0, len(order))
	for _, ref := range order {
		grouped = append(grouped, chains[ref])
	}
	return grouped
}

// processEntry runs one entry through IN_FLIGHT and settles it. Returns true
// when the entry reached DONE, false when it went back to PENDING or FAILED.
func (r *reconciler) processEntry(ctx context.Context, entry models.QueueEntry) bool {
	log := r.logger.GetChildLogger()

	if err := r.storages.Queue.MarkStatus(ctx, entry.EntryID, models.StatusInFlight, ""); err != nil {
		log.Err(err).
			Str("func", "reconciler.processEntry").
			Int64("entry_id", entry.EntryID).
			Msg("failed to mark entry in flight")
		return false
	}

	err := r.dispatch(ctx, entry)
	switch {
	case err == nil:
		if markErr := r.storages.Queue.MarkStatus(ctx, entry.EntryID, models.StatusDone, ""); markErr != nil {
			log.Err(markErr).
				Str("func", "reconciler.processEntry").
				Int64("entry_id", entry.EntryID).
				Msg("failed to mark entry done")
			return false
		}
		return true

	case errors.Is(err, ErrInconsistentState):
		// terminal: no retry can ever produce the missing server key
		log.Error().
			Str("func", "reconciler.processEntry").
			Int64("entry_id", entry.EntryID).
			Str("operation", string(entry.Operation)).
			Str("collection", entry.Collection).
			Int64("local_key", entry.LocalKey).
			RawJSON("payload", payloadOrNull(entry)).
			Msg("queue entry in inconsistent state, failing permanently")
		r.markFailure(ctx, entry, err, true)
		return false

	default:
		log.Warn().
			Err(err).
			Str("func", "reconciler.processEntry").
			Int64("entry_id", entry.EntryID).
			Str("operation", string(entry.Operation)).
			Int("attempt", entry.AttemptCount+1).
			Msg("remote dispatch failed")
		r.markFailure(ctx, entry, err, false)
		return false
	}
}

// markFailure applies the retry policy: attemptCount increments only on a
// failed remote attempt; the entry goes back to PENDING until the attempt
// budget is exhausted, then FAILED permanently. Terminal failures skip the
// attempt accounting entirely.
func (r *reconciler) markFailure(ctx context.Context, entry models.QueueEntry, cause error, terminal bool) {
	log := r.logger.GetChildLogger()

	status := models.StatusFailed
	if !terminal {
		attempts, err := r.storages.Queue.IncrementAttempt(ctx, entry.EntryID)
		if err != nil {
			log.Err(err).
				Str("func", "reconciler.markFailure").
				Int64("entry_id", entry.EntryID).
				Msg("failed to increment attempt count")
			return
		}
		if attempts < r.cfg.MaxAttempts {
			status = models.StatusPending
		}
	}

	if err := r.storages.Queue.MarkStatus(ctx, entry.EntryID, status, cause.Error()); err != nil {
		log.Err(err).
			Str("func", "reconciler.markFailure").
			Int64("entry_id", entry.EntryID).
			Msg("failed to record entry failure")
	}
}

func (r *reconciler) dispatch(ctx context.Context, entry models.QueueEntry) error {
	switch entry.Operation {
	case models.OperationCreate:
		return r.dispatchCreate(ctx, entry)
	case models.OperationUpdate:
		return r.dispatchUpdate(ctx, entry)
	case models.OperationDelete:
		return r.dispatchDelete(ctx, entry)
	default:
		return fmt.Errorf("%w: unknown operation %q (entry_id=%d)", ErrInconsistentState, entry.Operation, entry.EntryID)
	}
}

func (r *reconciler) dispatchCreate(ctx context.Context, entry models.QueueEntry) error {
	_, err := r.storages.Records.Get(ctx, entry.Collection, entry.LocalKey)
	if errors.Is(err, store.ErrRecordNotFound) {
		// deleted locally before it ever reached the backend
		return nil
	}
	if err != nil {
		return fmt.Errorf("load record for create: %w", err)
	}

	created, err := r.remote.Create(ctx, entry.Collection, entry.Payload, entry.IdempotencyKey)
	if err != nil {
		return err
	}

	err = r.storages.Records.SetServerKey(ctx, entry.Collection, entry.LocalKey, created.ServerKey)
	if errors.Is(err, store.ErrRecordNotFound) {
		// record vanished between dispatch and backfill; nothing left to stamp
		return nil
	}
	return err
}

func (r *reconciler) dispatchUpdate(ctx context.Context, entry models.QueueEntry) error {
	serverKey := entry.ServerKey
	if serverKey == "" {
		record, err := r.storages.Records.Get(ctx, entry.Collection, entry.LocalKey)
		if errors.Is(err, store.ErrRecordNotFound) {
			// deleted locally; the update is moot
			return nil
		}
		if err != nil {
			return fmt.Errorf("resolve server key for update: %w", err)
		}
		serverKey = record.ServerKey
	}

	if serverKey == "" {
		return fmt.Errorf("%w: UPDATE for %s/%d has no server key and no pending create can supply one",
			ErrInconsistentState, entry.Collection, entry.LocalKey)
	}

	_, err := r.remote.Update(ctx, entry.Collection, serverKey, entry.Payload, entry.IdempotencyKey)
	return err
}

func (r *reconciler) dispatchDelete(ctx context.Context, entry models.QueueEntry) error {
	if entry.ServerKey == "" {
		// never confirmed remotely; removing the local copy was enough
		return nil
	}

	err := r.remote.Delete(ctx, entry.Collection, entry.ServerKey, entry.IdempotencyKey)
	if errors.Is(err, adapter.ErrNotFound) {
		// already gone remotely; the delete has converged
		return nil
	}
	return err
}

func (r *reconciler) scheduleRetry() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.retryTimer != nil {
		r.retryTimer.Stop()
	}
	r.retryTimer = time.AfterFunc(r.cfg.RetryDelay, func() {
		// detached from the triggering call; the drain guard handles overlap
		_ = r.Drain(context.Background())
	})
}

func (r *reconciler) cancelRetry() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.retryTimer != nil {
		r.retryTimer.Stop()
		r.retryTimer = nil
	}
}

func (r *reconciler) notifyState() {
	if r.notify != nil {
		r.notify()
	}
}

func payloadOrNull(entry models.QueueEntry) []byte {
	if len(entry.Payload) == 0 {
		return []byte("null")
	}
	return entry.Payload
}
