package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fieldline-crm/fieldline/internal/adapter"
	"github.com/fieldline-crm/fieldline/internal/logger"
	"github.com/fieldline-crm/fieldline/internal/store"
	"github.com/fieldline-crm/fieldline/models"
)

type collectionService struct {
	storages *store.Storages
	remote   adapter.RemoteAPI
	monitor  Monitor
	logger   *logger.Logger
	validate *validator.Validate

	// nudge asks the reconciler for a drain pass after a local write while
	// online. Set by the service wiring; nil-safe.
	nudge func()
}

// NewCollectionService constructs the offline-first CRUD façade. All reads
// are served from the local store; all writes land locally first and reach
// the backend through the mutation queue.
func NewCollectionService(storages *store.Storages, remote adapter.RemoteAPI, monitor Monitor, logger *logger.Logger) CollectionService {
	return &collectionService{
		storages: storages,
		remote:   remote,
		monitor:  monitor,
		logger:   logger,
		validate: validator.New(),
	}
}

// Create implements [CollectionService]. The record write and the CREATE
// queue entry commit in one transaction, so a storage failure partway leaves
// neither behind.
func (s *collectionService) Create(ctx context.Context, collection string, entity any) (models.Record, error) {
	if err := s.checkEntity(collection, entity); err != nil {
		return models.Record{}, err
	}

	payload, err := models.EncodePayload(entity)
	if err != nil {
		return models.Record{}, err
	}

	now := time.Now().UTC()
	record := models.Record{
		Collection: collection,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.storages.InTx(ctx, func(tx *store.Storages) error {
		if _, err := tx.Records.Put(ctx, &record, indexEntries(collection, entity)); err != nil {
			return err
		}

		_, err := tx.Queue.Enqueue(ctx, &models.QueueEntry{
			Collection:     collection,
			Operation:      models.OperationCreate,
			LocalKey:       record.LocalKey,
			Payload:        payload,
			IdempotencyKey: uuid.NewString(),
			CreatedAt:      now,
		})
		return err
	})
	if err != nil {
		return models.Record{}, fmt.Errorf("create %s: %w", collection, err)
	}

	s.nudgeReconciler()

	return record, nil
}

// Update implements [CollectionService]. changes must be a pointer to the
// collection's entity type; its non-zero fields are merged onto the stored
// payload, and the UPDATE entry carries the full merged snapshot so replay
// order alone determines the final remote state.
func (s *collectionService) Update(ctx context.Context, collection string, localKey int64, changes any) (models.Record, error) {
	if err := s.checkEntityType(collection, changes); err != nil {
		return models.Record{}, err
	}

	record, err := s.storages.Records.Get(ctx, collection, localKey)
	if err != nil {
		return models.Record{}, err
	}

	merged, err := record.DecodePayload()
	if err != nil {
		return models.Record{}, err
	}
	if err := mergo.Merge(merged, changes, mergo.WithOverride); err != nil {
		return models.Record{}, fmt.Errorf("merge changes onto %s/%d: %w", collection, localKey, err)
	}
	if err := s.validateEntity(merged); err != nil {
		return models.Record{}, err
	}

	payload, err := models.EncodePayload(merged)
	if err != nil {
		return models.Record{}, err
	}

	now := time.Now().UTC()
	record.Payload = payload
	record.UpdatedAt = now

	err = s.storages.InTx(ctx, func(tx *store.Storages) error {
		if _, err := tx.Records.Put(ctx, &record, indexEntries(collection, merged)); err != nil {
			return err
		}

		_, err := tx.Queue.Enqueue(ctx, &models.QueueEntry{
			Collection:     collection,
			Operation:      models.OperationUpdate,
			LocalKey:       localKey,
			ServerKey:      record.ServerKey,
			Payload:        payload,
			IdempotencyKey: uuid.NewString(),
			CreatedAt:      now,
		})
		return err
	})
	if err != nil {
		return models.Record{}, fmt.Errorf("update %s/%d: %w", collection, localKey, err)
	}

	s.nudgeReconciler()

	return record, nil
}

// Delete implements [CollectionService]. Removing a key that is already
// absent is a no-op success, mirroring the store contract.
func (s *collectionService) Delete(ctx context.Context, collection string, localKey int64) error {
	if _, ok := collectionIndexes[collection]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	record, err := s.storages.Records.Get(ctx, collection, localKey)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	err = s.storages.InTx(ctx, func(tx *store.Storages) error {
		if err := tx.Records.Remove(ctx, collection, localKey); err != nil {
			return err
		}

		// a record the backend never confirmed needs no remote delete; its
		// still-queued CREATE settles without a network call during the next
		// drain pass
		if !record.Confirmed() {
			return nil
		}

		_, err := tx.Queue.Enqueue(ctx, &models.QueueEntry{
			Collection:     collection,
			Operation:      models.OperationDelete,
			LocalKey:       localKey,
			ServerKey:      record.ServerKey,
			IdempotencyKey: uuid.NewString(),
			CreatedAt:      time.Now().UTC(),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s/%d: %w", collection, localKey, err)
	}

	s.nudgeReconciler()

	return nil
}

// Get implements [CollectionService].
func (s *collectionService) Get(ctx context.Context, collection string, localKey int64) (models.Record, error) {
	return s.storages.Records.Get(ctx, collection, localKey)
}

// List implements [CollectionService].
func (s *collectionService) List(ctx context.Context, collection string) ([]models.Record, error) {
	if _, ok := collectionIndexes[collection]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return s.storages.Records.GetAll(ctx, collection)
}

// ListByIndex implements [CollectionService].
func (s *collectionService) ListByIndex(ctx context.Context, collection, indexName, value string) ([]models.Record, error) {
	if _, ok := collectionIndexes[collection]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	return s.storages.Records.GetByIndex(ctx, collection, indexName, value)
}

// Refresh implements [CollectionService]. Remote state is authoritative for
// records without queued intents; records that still have pending or
// in-flight entries keep their local payload so optimistic edits are never
// clobbered by a fetch racing the reconciler.
func (s *collectionService) Refresh(ctx context.Context, collection string) error {
	if _, ok := collectionIndexes[collection]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	if !s.monitor.Online() {
		s.logger.Debug().
			Str("func", "collectionService.Refresh").
			Str("collection", collection).
			Msg("offline, skipping refresh")
		return nil
	}

	remoteRecords, err := s.remote.GetAll(ctx, collection, nil)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", collection, err)
	}

	seen := make(map[string]struct{}, len(remoteRecords))
	for _, rr := range remoteRecords {
		seen[rr.ServerKey] = struct{}{}
		if err := s.applyRemoteRecord(ctx, collection, rr); err != nil {
			return fmt.Errorf("refresh %s: %w", collection, err)
		}
	}

	if err := s.dropVanishedRecords(ctx, collection, seen); err != nil {
		return fmt.Errorf("refresh %s: %w", collection, err)
	}

	s.logger.Debug().
		Str("func", "collectionService.Refresh").
		Str("collection", collection).
		Int("remote_records", len(remoteRecords)).
		Msg("collection refreshed")

	return nil
}

func (s *collectionService) applyRemoteRecord(ctx context.Context, collection string, rr models.RemoteRecord) error {
	entity, err := models.NewEntity(collection)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(rr.Data, entity); err != nil {
		return fmt.Errorf("decode remote %s/%s: %w", collection, rr.ServerKey, err)
	}

	local, err := s.storages.Records.GetByServerKey(ctx, collection, rr.ServerKey)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		record := models.Record{
			Collection: collection,
			ServerKey:  rr.ServerKey,
			Payload:    rr.Data,
			CreatedAt:  rr.CreatedAt,
			UpdatedAt:  rr.UpdatedAt,
		}
		_, err = s.storages.Records.Put(ctx, &record, indexEntries(collection, entity))
		return err
	case err != nil:
		return err
	}

	pending, err := s.storages.Queue.HasPendingForRecord(ctx, collection, local.LocalKey)
	if err != nil {
		return err
	}
	if pending {
		return nil
	}

	local.Payload = rr.Data
	local.UpdatedAt = rr.UpdatedAt
	_, err = s.storages.Records.Put(ctx, &local, indexEntries(collection, entity))
	return err
}

// dropVanishedRecords removes confirmed local records whose server key no
// longer exists remotely. Unconfirmed records and records with queued intents
// are left alone.
func (s *collectionService) dropVanishedRecords(ctx context.Context, collection string, seen map[string]struct{}) error {
	locals, err := s.storages.Records.GetAll(ctx, collection)
	if err != nil {
		return err
	}

	for _, local := range locals {
		if !local.Confirmed() {
			continue
		}
		if _, ok := seen[local.ServerKey]; ok {
			continue
		}

		pending, err := s.storages.Queue.HasPendingForRecord(ctx, collection, local.LocalKey)
		if err != nil {
			return err
		}
		if pending {
			continue
		}

		if err := s.storages.Records.Remove(ctx, collection, local.LocalKey); err != nil {
			return err
		}
	}

	return nil
}

// Collections implements [CollectionService].
func (s *collectionService) Collections() []string {
	return registeredCollections()
}

// Status implements [CollectionService].
func (s *collectionService) Status(ctx context.Context) (models.ConnectivityState, error) {
	return s.monitor.State(ctx)
}

// SyncIssues implements [CollectionService].
func (s *collectionService) SyncIssues(ctx context.Context) ([]models.QueueEntry, error) {
	return s.storages.Queue.ListFailed(ctx)
}

func (s *collectionService) nudgeReconciler() {
	if s.nudge != nil && s.monitor.Online() {
		s.nudge()
	}
}

func (s *collectionService) checkEntity(collection string, entity any) error {
	if err := s.checkEntityType(collection, entity); err != nil {
		return err
	}
	return s.validateEntity(entity)
}

func (s *collectionService) checkEntityType(collection string, entity any) error {
	want, err := models.NewEntity(collection)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	if reflect.TypeOf(entity) != reflect.TypeOf(want) {
		return fmt.Errorf("%w: collection %s expects %T, got %T", ErrTypeMismatch, collection, want, entity)
	}

	return nil
}

func (s *collectionService) validateEntity(entity any) error {
	if err := s.validate.Struct(entity); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}
