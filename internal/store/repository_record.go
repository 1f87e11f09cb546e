package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/fieldline-crm/fieldline/internal/logger"
	"github.com/fieldline-crm/fieldline/models"
)

type recordRepository struct {
	q      Querier
	logger *logger.Logger
}

func NewRecordRepository(q Querier, logger *logger.Logger) RecordRepository {
	return &recordRepository{
		q:      q,
		logger: logger,
	}
}

func (r *recordRepository) Put(ctx context.Context, record *models.Record, indexes []models.IndexEntry) (int64, error) {
	log := logger.FromContext(ctx)

	if record.LocalKey == 0 {
		res, err := r.q.ExecContext(ctx, insertRecord,
			record.Collection,
			nullString(record.ServerKey),
			string(record.Payload),
			record.CreatedAt,
			record.UpdatedAt,
		)
		if err != nil {
			log.Err(err).
				Str("func", "recordRepository.Put").
				Str("collection", record.Collection).
				Msg("failed to execute insert for record")
			return 0, fmt.Errorf("%w: insert record (collection=%s): %w", ErrStorageFailure, record.Collection, err)
		}

		localKey, err := res.LastInsertId()
		if err != nil {
			log.Err(err).
				Str("func", "recordRepository.Put").
				Str("collection", record.Collection).
				Msg("failed to read assigned local key")
			return 0, fmt.Errorf("%w: read assigned local key: %w", ErrStorageFailure, err)
		}
		record.LocalKey = localKey
	} else {
		_, err := r.q.ExecContext(ctx, updateRecord,
			nullString(record.ServerKey),
			string(record.Payload),
			record.UpdatedAt,
			record.Collection,
			record.LocalKey,
		)
		if err != nil {
			log.Err(err).
				Str("func", "recordRepository.Put").
				Str("collection", record.Collection).
				Int64("local_key", record.LocalKey).
				Msg("failed to execute overwrite for record")
			return 0, fmt.Errorf("%w: overwrite record (local_key=%d): %w", ErrStorageFailure, record.LocalKey, err)
		}
	}

	if err := r.rewriteIndexRows(ctx, record, indexes); err != nil {
		return 0, err
	}

	return record.LocalKey, nil
}

// rewriteIndexRows replaces all secondary-index rows for the record so the
// index never holds entries for stale field values.
func (r *recordRepository) rewriteIndexRows(ctx context.Context, record *models.Record, indexes []models.IndexEntry) error {
	log := logger.FromContext(ctx)

	if _, err := r.q.ExecContext(ctx, deleteRecordIndexRows, record.Collection, record.LocalKey); err != nil {
		log.Err(err).
			Str("func", "recordRepository.rewriteIndexRows").
			Int64("local_key", record.LocalKey).
			Msg("failed to clear index rows")
		return fmt.Errorf("%w: clear index rows (local_key=%d): %w", ErrStorageFailure, record.LocalKey, err)
	}

	for _, entry := range indexes {
		if entry.Value == "" {
			continue
		}
		if _, err := r.q.ExecContext(ctx, insertRecordIndexRow,
			record.Collection, entry.IndexName, entry.Value, record.LocalKey,
		); err != nil {
			log.Err(err).
				Str("func", "recordRepository.rewriteIndexRows").
				Str("index", entry.IndexName).
				Int64("local_key", record.LocalKey).
				Msg("failed to insert index row")
			return fmt.Errorf("%w: insert index row %s (local_key=%d): %w", ErrStorageFailure, entry.IndexName, record.LocalKey, err)
		}
	}

	return nil
}

func (r *recordRepository) Get(ctx context.Context, collection string, localKey int64) (models.Record, error) {
	row := r.q.QueryRowContext(ctx, selectRecordColumns+`
		WHERE collection = ? AND local_key = ?;`, collection, localKey)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, fmt.Errorf("%w: %s/%d", ErrRecordNotFound, collection, localKey)
		}
		logger.FromContext(ctx).Err(err).
			Str("func", "recordRepository.Get").
			Str("collection", collection).
			Int64("local_key", localKey).
			Msg("failed to scan record row")
		return models.Record{}, fmt.Errorf("%w: get record (local_key=%d): %w", ErrStorageFailure, localKey, err)
	}

	return record, nil
}

func (r *recordRepository) GetAll(ctx context.Context, collection string) ([]models.Record, error) {
	rows, err := r.q.QueryContext(ctx, selectRecordColumns+`
		WHERE collection = ?;`, collection)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordRepository.GetAll").
			Str("collection", collection).
			Msg("failed to query all records")
		return nil, fmt.Errorf("%w: query all records (collection=%s): %w", ErrStorageFailure, collection, err)
	}
	defer rows.Close()

	return collectRecords(ctx, rows, "recordRepository.GetAll")
}

func (r *recordRepository) GetByIndex(ctx context.Context, collection, indexName, value string) ([]models.Record, error) {
	query, args, err := sq.
		Select("r.local_key", "r.collection", "r.server_key", "r.payload", "r.created_at", "r.updated_at").
		From("records r").
		Join("record_index ri ON ri.local_key = r.local_key AND ri.collection = r.collection").
		Where(sq.Eq{"r.collection": collection, "ri.index_name": indexName, "ri.value": value}).
		OrderBy("r.local_key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: build index query: %w", ErrStorageFailure, err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordRepository.GetByIndex").
			Str("collection", collection).
			Str("index", indexName).
			Msg("failed to query records by index")
		return nil, fmt.Errorf("%w: query by index %s (collection=%s): %w", ErrStorageFailure, indexName, collection, err)
	}
	defer rows.Close()

	return collectRecords(ctx, rows, "recordRepository.GetByIndex")
}

func (r *recordRepository) GetByServerKey(ctx context.Context, collection, serverKey string) (models.Record, error) {
	row := r.q.QueryRowContext(ctx, selectRecordColumns+`
		WHERE collection = ? AND server_key = ?;`, collection, serverKey)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, fmt.Errorf("%w: %s/server_key=%s", ErrRecordNotFound, collection, serverKey)
		}
		return models.Record{}, fmt.Errorf("%w: get record by server key: %w", ErrStorageFailure, err)
	}

	return record, nil
}

func (r *recordRepository) Remove(ctx context.Context, collection string, localKey int64) error {
	log := logger.FromContext(ctx)

	if _, err := r.q.ExecContext(ctx, deleteRecordIndexRows, collection, localKey); err != nil {
		log.Err(err).
			Str("func", "recordRepository.Remove").
			Int64("local_key", localKey).
			Msg("failed to remove index rows")
		return fmt.Errorf("%w: remove index rows (local_key=%d): %w", ErrStorageFailure, localKey, err)
	}

	// removing an absent key is a no-op success
	if _, err := r.q.ExecContext(ctx, deleteRecord, collection, localKey); err != nil {
		log.Err(err).
			Str("func", "recordRepository.Remove").
			Str("collection", collection).
			Int64("local_key", localKey).
			Msg("failed to remove record")
		return fmt.Errorf("%w: remove record (local_key=%d): %w", ErrStorageFailure, localKey, err)
	}

	return nil
}

func (r *recordRepository) SetServerKey(ctx context.Context, collection string, localKey int64, serverKey string) error {
	log := logger.FromContext(ctx)

	res, err := r.q.ExecContext(ctx, setRecordServerKey, serverKey, collection, localKey)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.SetServerKey").
			Str("collection", collection).
			Int64("local_key", localKey).
			Msg("failed to back-fill server key")
		return fmt.Errorf("%w: set server key (local_key=%d): %w", ErrStorageFailure, localKey, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected after set server key: %w", ErrStorageFailure, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%d", ErrRecordNotFound, collection, localKey)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.Record, error) {
	var (
		record    models.Record
		serverKey sql.NullString
		payload   string
	)

	if err := row.Scan(
		&record.LocalKey,
		&record.Collection,
		&serverKey,
		&payload,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return models.Record{}, err
	}

	record.ServerKey = serverKey.String
	record.Payload = json.RawMessage(payload)

	return record, nil
}

func collectRecords(ctx context.Context, rows *sql.Rows, funcName string) ([]models.Record, error) {
	var items []models.Record

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			logger.FromContext(ctx).Err(err).
				Str("func", funcName).
				Msg("failed to scan record row")
			return nil, fmt.Errorf("%w: scan record row: %w", ErrStorageFailure, err)
		}
		items = append(items, record)
	}

	if err := rows.Err(); err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", funcName).
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: iterate record rows: %w", ErrStorageFailure, err)
	}

	return items, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
