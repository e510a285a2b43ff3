package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pullfunds/apps/pullfunds/internal/model"
)

func TestOutboxRepositoryStoreEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	event, err := model.NewOutboxEvent("funds_pulled", "0xuser", map[string]string{"tx_hash": "0x01"})
	require.NoError(t, err)

	mock.ExpectExec(insertOutboxPattern).
		WithArgs(event.EventID, "funds_pulled", "unsent", "0xuser", []byte(event.Payload), event.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewOutboxRepository(db, zap.NewNop())
	require.NoError(t, repo.StoreEvent(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepositoryGetUnsentEventsForProcessing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	createdAt := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"event_id", "event_type", "status", "event_key", "payload", "created_at"}).
		AddRow("id-1", "address_stored", "unsent", "0xabc", []byte(`{"address":"0xabc"}`), createdAt).
		AddRow("id-2", "funds_pulled", "unsent", "0xdef", []byte(`{"tx_hash":"0x01"}`), createdAt)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).WithArgs(100).WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing'")).WithArgs("id-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing'")).WithArgs("id-2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewOutboxRepository(db, zap.NewNop())
	claimed, err := repo.GetUnsentEventsForProcessing(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	assert.Equal(t, "id-1", claimed[0].EventID)
	assert.Equal(t, model.EventStatusProcessing, claimed[0].Status)
	assert.JSONEq(t, `{"tx_hash":"0x01"}`, string(claimed[1].Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepositoryClaimRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"event_id", "event_type", "status", "event_key", "payload", "created_at"}).
		AddRow("id-1", "address_stored", "unsent", "0xabc", []byte(`{}`), time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).WithArgs(10).WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'processing'")).WithArgs("id-1").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	repo := NewOutboxRepository(db, zap.NewNop())
	claimed, err := repo.GetUnsentEventsForProcessing(context.Background(), 10)
	assert.ErrorContains(t, err, "deadlock detected")
	assert.Nil(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepositoryMarkEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'sent'")).WithArgs("id-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'unsent'")).WithArgs("id-2").WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewOutboxRepository(db, zap.NewNop())
	require.NoError(t, repo.MarkEventAsSent(context.Background(), "id-1"))
	require.NoError(t, repo.MarkEventAsFailed(context.Background(), "id-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitMigration(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS stored_addresses")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_stored_addresses_address")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS event_outbox")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS idx_event_outbox_status_created")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, InitMigration(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
