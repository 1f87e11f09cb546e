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

func newTestRecordRepo(t *testing.T) (*recordRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	l := logger.Nop()
	repo := &recordRepository{q: db, logger: l}

	return repo, mock, db
}

func recordColumns() []string {
	return []string{"local_key", "collection", "server_key", "payload", "created_at", "updated_at"}
}

func TestRecordRepository_Put_InsertAssignsLocalKey(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	now := time.Now().UTC()
	record := models.Record{
		Collection: models.CollectionLeads,
		Payload:    []byte(`{"first_name":"Ada"}`),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	mock.ExpectExec("INSERT INTO records").
		WithArgs(models.CollectionLeads, sqlmock.AnyArg(), `{"first_name":"Ada"}`, now, now).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("DELETE FROM record_index").
		WithArgs(models.CollectionLeads, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO record_index").
		WithArgs(models.CollectionLeads, "status", "new", int64(7)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	localKey, err := repo.Put(context.Background(), &record, []models.IndexEntry{
		{IndexName: "status", Value: "new"},
		{IndexName: "source", Value: ""}, // empty values produce no index row
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), localKey)
	assert.Equal(t, int64(7), record.LocalKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_Put_OverwriteExisting(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	now := time.Now().UTC()
	record := models.Record{
		LocalKey:   3,
		Collection: models.CollectionCompanies,
		ServerKey:  "srv-3",
		Payload:    []byte(`{"name":"Acme"}`),
		UpdatedAt:  now,
	}

	mock.ExpectExec("UPDATE records SET").
		WithArgs(sqlmock.AnyArg(), `{"name":"Acme"}`, now, models.CollectionCompanies, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM record_index").
		WithArgs(models.CollectionCompanies, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	localKey, err := repo.Put(context.Background(), &record, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), localKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_Put_InsertFailure(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	record := models.Record{Collection: models.CollectionLeads, Payload: []byte(`{}`)}

	mock.ExpectExec("INSERT INTO records").
		WillReturnError(errors.New("disk I/O error"))

	_, err := repo.Put(context.Background(), &record, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageFailure)
}

func TestRecordRepository_Get_Success(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(recordColumns()).
		AddRow(5, models.CollectionLeads, "srv-5", `{"first_name":"Ada"}`, now, now)

	mock.ExpectQuery("SELECT").
		WithArgs(models.CollectionLeads, int64(5)).
		WillReturnRows(rows)

	record, err := repo.Get(context.Background(), models.CollectionLeads, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), record.LocalKey)
	assert.Equal(t, "srv-5", record.ServerKey)
	assert.JSONEq(t, `{"first_name":"Ada"}`, string(record.Payload))
}

func TestRecordRepository_Get_NotFound(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WithArgs(models.CollectionLeads, int64(404)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), models.CollectionLeads, 404)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordRepository_GetAll(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(recordColumns()).
		AddRow(1, models.CollectionContacts, nil, `{"first_name":"A"}`, now, now).
		AddRow(2, models.CollectionContacts, "srv-2", `{"first_name":"B"}`, now, now)

	mock.ExpectQuery("SELECT").
		WithArgs(models.CollectionContacts).
		WillReturnRows(rows)

	records, err := repo.GetAll(context.Background(), models.CollectionContacts)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Empty(t, records[0].ServerKey)
	assert.Equal(t, "srv-2", records[1].ServerKey)
}

func TestRecordRepository_GetByIndex(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(recordColumns()).
		AddRow(9, models.CollectionLeads, nil, `{"status":"new"}`, now, now)

	mock.ExpectQuery("SELECT (.+) FROM records r JOIN record_index ri").
		WithArgs(models.CollectionLeads, "status", "new").
		WillReturnRows(rows)

	records, err := repo.GetByIndex(context.Background(), models.CollectionLeads, "status", "new")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(9), records[0].LocalKey)
}

func TestRecordRepository_GetByServerKey_NotFound(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT").
		WithArgs(models.CollectionLeads, "ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByServerKey(context.Background(), models.CollectionLeads, "ghost")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordRepository_Remove_AbsentKeyIsNoop(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM record_index").
		WithArgs(models.CollectionLeads, int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM records").
		WithArgs(models.CollectionLeads, int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Remove(context.Background(), models.CollectionLeads, 12)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepository_SetServerKey_Success(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	mock.ExpectExec("UPDATE records SET").
		WithArgs("srv-8", models.CollectionLeads, int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetServerKey(context.Background(), models.CollectionLeads, 8, "srv-8")
	require.NoError(t, err)
}

func TestRecordRepository_SetServerKey_RecordGone(t *testing.T) {
	repo, mock, db := newTestRecordRepo(t)
	defer db.Close()

	mock.ExpectExec("UPDATE records SET").
		WithArgs("srv-8", models.CollectionLeads, int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetServerKey(context.Background(), models.CollectionLeads, 8, "srv-8")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
