package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/fieldline-crm/fieldline/internal/logger"
	"github.com/fieldline-crm/fieldline/models"
)

type queueRepository struct {
	q      Querier
	logger *logger.Logger
}

func NewQueueRepository(q Querier, logger *logger.Logger) QueueRepository {
	return &queueRepository{
		q:      q,
		logger: logger,
	}
}

func (r *queueRepository) Enqueue(ctx context.Context, entry *models.QueueEntry) (int64, error) {
	log := logger.FromContext(ctx)

	var payload sql.NullString
	if entry.Payload != nil {
		payload = sql.NullString{String: string(entry.Payload), Valid: true}
	}

	res, err := r.q.ExecContext(ctx, insertQueueEntry,
		entry.Collection,
		string(entry.Operation),
		entry.LocalKey,
		nullString(entry.ServerKey),
		payload,
		entry.IdempotencyKey,
		entry.AttemptCount,
		string(models.StatusPending),
		nullString(entry.LastError),
		entry.CreatedAt,
	)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.Enqueue").
			Str("collection", entry.Collection).
			Str("operation", string(entry.Operation)).
			Int64("local_key", entry.LocalKey).
			Msg("failed to append queue entry")
		return 0, fmt.Errorf("%w: enqueue %s for %s/%d: %w", ErrStorageFailure, entry.Operation, entry.Collection, entry.LocalKey, err)
	}

	entryID, err := res.LastInsertId()
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.Enqueue").
			Msg("failed to read assigned entry id")
		return 0, fmt.Errorf("%w: read assigned entry id: %w", ErrStorageFailure, err)
	}

	entry.EntryID = entryID
	entry.Status = models.StatusPending

	return entryID, nil
}

func (r *queueRepository) ListPending(ctx context.Context) ([]models.QueueEntry, error) {
	return r.listByStatus(ctx, models.StatusPending, "queueRepository.ListPending")
}

func (r *queueRepository) ListFailed(ctx context.Context) ([]models.QueueEntry, error) {
	return r.listByStatus(ctx, models.StatusFailed, "queueRepository.ListFailed")
}

func (r *queueRepository) listByStatus(ctx context.Context, status models.EntryStatus, funcName string) ([]models.QueueEntry, error) {
	query := selectQueueColumns + `
		WHERE status = ?
		ORDER BY entry_id ASC;`

	rows, err := r.q.QueryContext(ctx, query, string(status))
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", funcName).
			Str("status", string(status)).
			Msg("failed to query queue entries")
		return nil, fmt.Errorf("%w: query %s queue entries: %w", ErrStorageFailure, status, err)
	}
	defer rows.Close()

	var entries []models.QueueEntry

	for rows.Next() {
		entry, scanErr := scanQueueEntry(rows)
		if scanErr != nil {
			logger.FromContext(ctx).Err(scanErr).
				Str("func", funcName).
				Msg("failed to scan queue entry row")
			return nil, fmt.Errorf("%w: scan queue entry row: %w", ErrStorageFailure, scanErr)
		}
		entries = append(entries, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		logger.FromContext(ctx).Err(rowsErr).
			Str("func", funcName).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: iterate queue entry rows: %w", ErrStorageFailure, rowsErr)
	}

	return entries, nil
}

func (r *queueRepository) MarkStatus(ctx context.Context, entryID int64, status models.EntryStatus, lastError string) error {
	log := logger.FromContext(ctx)

	res, err := r.q.ExecContext(ctx, markQueueStatus, string(status), nullString(lastError), entryID)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.MarkStatus").
			Int64("entry_id", entryID).
			Str("status", string(status)).
			Msg("failed to mark queue entry status")
		return fmt.Errorf("%w: mark entry %d %s: %w", ErrStorageFailure, entryID, status, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected after mark status: %w", ErrStorageFailure, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: entry_id=%d", ErrEntryNotFound, entryID)
	}

	return nil
}

func (r *queueRepository) IncrementAttempt(ctx context.Context, entryID int64) (int, error) {
	log := logger.FromContext(ctx)

	if _, err := r.q.ExecContext(ctx, incrementQueueAttempt, entryID); err != nil {
		log.Err(err).
			Str("func", "queueRepository.IncrementAttempt").
			Int64("entry_id", entryID).
			Msg("failed to increment attempt count")
		return 0, fmt.Errorf("%w: increment attempt (entry_id=%d): %w", ErrStorageFailure, entryID, err)
	}

	var count int
	if err := r.q.QueryRowContext(ctx, selectQueueAttempt, entryID).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: entry_id=%d", ErrEntryNotFound, entryID)
		}
		return 0, fmt.Errorf("%w: read attempt count (entry_id=%d): %w", ErrStorageFailure, entryID, err)
	}

	return count, nil
}

func (r *queueRepository) CountPending(ctx context.Context) (int, error) {
	return r.countByStatus(ctx, models.StatusPending)
}

func (r *queueRepository) CountFailed(ctx context.Context) (int, error) {
	return r.countByStatus(ctx, models.StatusFailed)
}

func (r *queueRepository) countByStatus(ctx context.Context, status models.EntryStatus) (int, error) {
	query, args, err := sq.
		Select("COUNT(*)").
		From("mutation_queue").
		Where(sq.Eq{"status": string(status)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: build count query: %w", ErrStorageFailure, err)
	}

	var count int
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.countByStatus").
			Str("status", string(status)).
			Msg("failed to count queue entries")
		return 0, fmt.Errorf("%w: count %s queue entries: %w", ErrStorageFailure, status, err)
	}

	return count, nil
}

func (r *queueRepository) HasPendingForRecord(ctx context.Context, collection string, localKey int64) (bool, error) {
	query, args, err := sq.
		Select("COUNT(*)").
		From("mutation_queue").
		Where(sq.Eq{
			"collection": collection,
			"local_key":  localKey,
			"status":     []string{string(models.StatusPending), string(models.StatusInFlight)},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: build pending-for-record query: %w", ErrStorageFailure, err)
	}

	var count int
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.HasPendingForRecord").
			Str("collection", collection).
			Int64("local_key", localKey).
			Msg("failed to count pending entries for record")
		return false, fmt.Errorf("%w: count pending entries (local_key=%d): %w", ErrStorageFailure, localKey, err)
	}

	return count > 0, nil
}

func (r *queueRepository) RequeueInFlight(ctx context.Context) (int64, error) {
	res, err := r.q.ExecContext(ctx, requeueInFlightEntries)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.RequeueInFlight").
			Msg("failed to requeue in-flight entries")
		return 0, fmt.Errorf("%w: requeue in-flight entries: %w", ErrStorageFailure, err)
	}

	requeued, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected after requeue: %w", ErrStorageFailure, err)
	}

	return requeued, nil
}

func (r *queueRepository) PurgeDone(ctx context.Context) error {
	if _, err := r.q.ExecContext(ctx, purgeDoneEntries); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "queueRepository.PurgeDone").
			Msg("failed to purge done entries")
		return fmt.Errorf("%w: purge done entries: %w", ErrStorageFailure, err)
	}

	return nil
}

func scanQueueEntry(row rowScanner) (models.QueueEntry, error) {
	var (
		entry     models.QueueEntry
		operation string
		serverKey sql.NullString
		payload   sql.NullString
		status    string
		lastError sql.NullString
	)

	if err := row.Scan(
		&entry.EntryID,
		&entry.Collection,
		&operation,
		&entry.LocalKey,
		&serverKey,
		&payload,
		&entry.IdempotencyKey,
		&entry.AttemptCount,
		&status,
		&lastError,
		&entry.CreatedAt,
	); err != nil {
		return models.QueueEntry{}, err
	}

	entry.Operation = models.Operation(operation)
	entry.ServerKey = serverKey.String
	entry.Status = models.EntryStatus(status)
	entry.LastError = lastError.String
	if payload.Valid {
		entry.Payload = []byte(payload.String)
	}

	return entry, nil
}
