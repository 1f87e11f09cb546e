package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline-crm/fieldline/internal/logger"
	"github.com/fieldline-crm/fieldline/models"
)

func newTestQueueRepo(t *testing.T) (*queueRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	l := logger.Nop()
	repo := &queueRepository{q: db, logger: l}

	return repo, mock, db
}

func queueColumns() []string {
	return []string{
		"entry_id", "collection", "operation", "local_key", "server_key",
		"payload", "idempotency_key", "attempt_count", "status", "last_error", "created_at",
	}
}

func TestQueueRepository_Enqueue_AssignsIDAndPending(t *testing.T) {
	repo, mock, db := newTestQueueRepo(t)
	defer db.Close()

	entry := models.QueueEntry{
		Collection:     models.CollectionLeads,
		Operation:      models.OperationCreate,
		LocalKey:       4,
		Payload:        []byte(`{"first_name":"Ada"}`),
		IdempotencyKey: "idem-1",
		CreatedAt:      time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO mutation_queue").
		WillReturnResult(sqlmock.NewResult(11, 1))

	entryID, err := repo.Enqueue(context.Background(), &entry)
	require.NoError(t, err)
	assert.Equal(t, int64(11), entryID)
	assert.Equal(t, int64(11), entry.EntryID)
	assert.Equal(t, models.StatusPending, entry.Status)
}

func TestQueueRepository_Enqueue_Failure(t *testing.T) {
	repo, mock, db := newTestQueueRepo(t)
	defer db.Close()

	entry := models.QueueEntry{Collection: models.CollectionLeads, Operation: models.OperationCreate}

	mock.ExpectExec("INSERT INTO mutation_queue").
		WillReturnError(errors.New("database is locked"))

	_, err := repo.Enqueue(context.Background(), &entry)
	assert.ErrorIs(t, err, ErrStorageFailure)
}

func TestQueueRepository_ListPending_PreservesOrder(t *testing.T) {
	repo, mock, db := newTestQueueRepo(t)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(queueColumns()).
		AddRow(1, models.CollectionLeads, "CREATE", 4, nil, `{"a":1}`, "k1", 0, "PENDING", nil, now).
		AddRow(2, models.CollectionLeads, "UPDATE", 4, nil, `{"a":2}`, "k2", 1, "PENDING", "timeout", now)

	mock.ExpectQuery("SELECT").
		WithArgs("PENDING").
		WillReturnRows(rows)

	entries, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].EntryID)
	assert.Equal(t, models.OperationCreate, entries[0].Operation)
	assert.Equal(t, int64(2), entries[1].EntryID)
	assert.Equal(t, 1, entries[1].AttemptCount)
	assert.Equal(t, "timeout", entries[1].LastError)
}

func TestQueueRepository_ListFailed(t *testing.T) {
	repo, mock, db := newTestQueueRepo(t)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(queueColumns()).
		AddRow(3, models.CollectionContacts, "DELETE", 9, "srv-9", nil, "k3", 3, "FAILED", "410 gone", now)

	mock.ExpectQuery("SELECT").
		WithArgs("FAILED").
		WillReturnRows(rows)

	entries, err := repo.ListFailed(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusFailed, entries[0].Status)
	assert.Nil(t, entries[0].Payload)
}

func TestQueueRepository_MarkStatus_Success(t *testing.T) {
	repo, mock, db := newTestQueueRepo(t)
	defer db.Close()

	mock.ExpectExec("UPDATE mutation_queue SET").
		WithArgs("DONE", sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkStatus(context.Background(), 5, models.StatusDone, "")
	require.NoError(t, err)
}

func TestQueueRepository_MarkStatus_EntryGone(t *testing.T) {
	repo, mock, db := newTestQueueRepo(t)
	defer db.Close()

	mock.ExpectExec("UPDATE mutation_queue SET").
		WithArgs("DONE", sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkStatus(context.Background(), 5, models.StatusDone, "")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestQueueRepository_IncrementAttempt(t *testing.T) {
	repo, mock, db := newTestQueueRepo(t)
	defer db.Close()

	mock.ExpectExec("UPDATE mutation_queue").
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT attempt_count").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"attempt_count"}).AddRow(2))

	count, err := repo.IncrementAttempt(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestQueueRepository_CountPending(t *testing.T) {
	repo, mock, db := newTestQueueRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestQueueRepository_HasPendingForRecord(t *testing.T) {
	repo, mock, db := newTestQueueRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	pending, err := repo.HasPendingForRecord(context.Background(), models.CollectionLeads, 4)
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestQueueRepository_RequeueInFlight_RestoresStrandedEntries(t *testing.T) {
	repo, mock, db := newTestQueueRepo(t)
	defer db.Close()

	// entries a crashed process left IN_FLIGHT become PENDING again so the
	// next drain pass can see them
	mock.ExpectExec("UPDATE mutation_queue").
		WillReturnResult(sqlmock.NewResult(0, 2))

	requeued, err := repo.RequeueInFlight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), requeued)
}

func TestQueueRepository_RequeueInFlight_Failure(t *testing.T) {
	repo, mock, db := newTestQueueRepo(t)
	defer db.Close()

	mock.ExpectExec("UPDATE mutation_queue").
		WillReturnError(errors.New("database is locked"))

	_, err := repo.RequeueInFlight(context.Background())
	assert.ErrorIs(t, err, ErrStorageFailure)
}

func TestQueueRepository_PurgeDone(t *testing.T) {
	repo, mock, db := newTestQueueRepo(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM mutation_queue").
		WillReturnResult(sqlmock.NewResult(0, 4))

	err := repo.PurgeDone(context.Background())
	require.NoError(t, err)
}
