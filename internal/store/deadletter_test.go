// internal/store/deadletter_test.go
package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeadLetterMockStore(t *testing.T) (*DeadLetterStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDeadLetterStore(db), mock
}

func TestDeadLetterStore_MarkRetryable(t *testing.T) {
	// The flag is what clears a dead letter for operator replay.
	s, mock := newDeadLetterMockStore(t)

	mock.ExpectExec("UPDATE dead_letter_queue").
		WithArgs(true, "ntf-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.MarkRetryable(context.Background(), "ntf-1", true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
