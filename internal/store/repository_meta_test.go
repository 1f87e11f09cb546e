package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline-crm/fieldline/internal/logger"
)

func newTestMetaRepo(t *testing.T) (*metaRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	return &metaRepository{q: db, logger: logger.Nop()}, mock, db
}

func TestMetaRepository_LastSyncAt_NeverSynced(t *testing.T) {
	repo, mock, db := newTestMetaRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT value").
		WithArgs(metaKeyLastSyncAt).
		WillReturnError(sql.ErrNoRows)

	at, err := repo.LastSyncAt(context.Background())
	require.NoError(t, err)
	assert.True(t, at.IsZero())
}

func TestMetaRepository_LastSyncAt_RoundTrip(t *testing.T) {
	repo, mock, db := newTestMetaRepo(t)
	defer db.Close()

	stamp := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO sync_meta").
		WithArgs(metaKeyLastSyncAt, stamp.Format(time.RFC3339Nano)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT value").
		WithArgs(metaKeyLastSyncAt).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(stamp.Format(time.RFC3339Nano)))

	require.NoError(t, repo.SetLastSyncAt(context.Background(), stamp))

	at, err := repo.LastSyncAt(context.Background())
	require.NoError(t, err)
	assert.True(t, stamp.Equal(at))
}
