// internal/store/notifications_test.go
package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-pipeline/internal/models"
)

func newMockStore(t *testing.T) (*NotificationStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewNotificationStore(db), mock
}

func TestClaimProcessing_Won(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE notifications").
		WithArgs("PROCESSING", "ntf-1", "QUEUED").
		WillReturnRows(sqlmock.NewRows([]string{"retry_count"}).AddRow(2))

	retryCount, claimed, err := s.ClaimProcessing(context.Background(), "ntf-1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, 2, retryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimProcessing_Lost(t *testing.T) {
	// No returned row means another worker already owns the notification,
	// or it reached a terminal state.
	s, mock := newMockStore(t)

	mock.ExpectQuery("UPDATE notifications").
		WithArgs("PROCESSING", "ntf-1", "QUEUED").
		WillReturnRows(sqlmock.NewRows([]string{"retry_count"}))

	_, claimed, err := s.ClaimProcessing(context.Background(), "ntf-1")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestRequeue(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE notifications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	requeued, err := s.Requeue(context.Background(), "ntf-1")
	require.NoError(t, err)
	assert.True(t, requeued)

	// A notification that is not FAILED cannot be requeued.
	mock.ExpectExec("UPDATE notifications").
		WillReturnResult(sqlmock.NewResult(0, 0))
	requeued, err = s.Requeue(context.Background(), "ntf-2")
	require.NoError(t, err)
	assert.False(t, requeued)
}

func TestGetByID_ScansNullableColumns(t *testing.T) {
	s, mock := newMockStore(t)

	created := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	queued := created.Add(time.Second)
	mock.ExpectQuery("FROM notifications WHERE id").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "recipient_id", "channel", "subject", "body",
			"template_id", "priority", "idempotency_key", "scheduled_at", "status",
			"retry_count", "max_retries", "next_retry_at", "created_at",
			"queued_at", "sent_at", "delivered_at", "failed_at",
		}).AddRow("ntf-1", "tenant-1", "rcpt-1", "EMAIL", "s", "b",
			nil, "HIGH", "key-1", nil, "QUEUED",
			2, 3, nil, created, queued, nil, nil, nil))

	n, err := s.GetByID(context.Background(), "ntf-1")
	require.NoError(t, err)

	assert.Equal(t, models.ChannelEmail, n.Channel)
	assert.Equal(t, models.PriorityHigh, n.Priority)
	assert.Equal(t, "key-1", n.IdempotencyKey)
	assert.Empty(t, n.TemplateID)
	assert.Nil(t, n.ScheduledAt)
	assert.Nil(t, n.SentAt)
	require.NotNil(t, n.QueuedAt)
	assert.Equal(t, queued, n.QueuedAt.UTC())
	assert.False(t, n.RetriesExhausted())

	n.RetryCount = 3
	assert.True(t, n.RetriesExhausted())
}

func TestFindByIdempotencyKey_NoRows(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("idempotency_key").WillReturnError(sql.ErrNoRows)

	n, err := s.FindByIdempotencyKey(context.Background(), "tenant-1", "missing")
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestMarkQueued_EmptyBatchIsNoOp(t *testing.T) {
	s, mock := newMockStore(t)

	require.NoError(t, s.MarkQueued(context.Background(), nil, time.Now()))
	require.NoError(t, s.ClearNextRetry(context.Background(), nil))
	require.NoError(t, s.TouchQueuedAt(context.Background(), nil, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
