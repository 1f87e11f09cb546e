package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fieldline-crm/fieldline/internal/logger"
)

const metaKeyLastSyncAt = "last_sync_at"

type metaRepository struct {
	q      Querier
	logger *logger.Logger
}

func NewMetaRepository(q Querier, logger *logger.Logger) MetaRepository {
	return &metaRepository{
		q:      q,
		logger: logger,
	}
}

func (r *metaRepository) LastSyncAt(ctx context.Context) (time.Time, error) {
	var value string

	err := r.q.QueryRowContext(ctx, selectMetaValue, metaKeyLastSyncAt).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// no drain pass has completed yet
			return time.Time{}, nil
		}
		logger.FromContext(ctx).Err(err).
			Str("func", "metaRepository.LastSyncAt").
			Msg("failed to read last sync timestamp")
		return time.Time{}, fmt.Errorf("%w: read last sync timestamp: %w", ErrStorageFailure, err)
	}

	at, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: parse last sync timestamp %q: %w", ErrStorageFailure, value, err)
	}

	return at, nil
}

func (r *metaRepository) SetLastSyncAt(ctx context.Context, at time.Time) error {
	_, err := r.q.ExecContext(ctx, upsertMetaValue, metaKeyLastSyncAt, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "metaRepository.SetLastSyncAt").
			Msg("failed to stamp last sync timestamp")
		return fmt.Errorf("%w: stamp last sync timestamp: %w", ErrStorageFailure, err)
	}

	return nil
}
