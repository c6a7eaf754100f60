// internal/delivery/replay_test.go
package delivery

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-pipeline/internal/common/logger"
	"notification-pipeline/internal/store"
)

type stubPublisher struct {
	published []string
	err       error
}

func (s *stubPublisher) Publish(ctx context.Context, id string) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, id)
	return nil
}

func (s *stubPublisher) PublishBatch(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := s.Publish(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func newReplayerFixture(t *testing.T) (*Replayer, sqlmock.Sqlmock, *stubPublisher) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pub := &stubPublisher{}
	r := NewReplayer(
		store.NewNotificationStore(db),
		store.NewDeadLetterStore(db),
		pub,
		logger.NewTestLogger(t),
	)
	return r, mock, pub
}

func deadLetterRow(retryable bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "notification_id", "reason", "payload", "retryable", "created_at",
	}).AddRow("dlq-1", "ntf-1", "gave up", []byte("{}"), retryable, time.Now())
}

func TestReplayer_Replay(t *testing.T) {
	r, mock, pub := newReplayerFixture(t)

	mock.ExpectQuery("FROM dead_letter_queue").
		WillReturnRows(deadLetterRow(true))
	// FAILED -> QUEUED
	mock.ExpectExec("UPDATE notifications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM dead_letter_queue").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.Replay(context.Background(), "ntf-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"ntf-1"}, pub.published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplayer_Replay_NoDeadLetter(t *testing.T) {
	r, mock, pub := newReplayerFixture(t)

	mock.ExpectQuery("FROM dead_letter_queue").
		WillReturnError(sql.ErrNoRows)

	err := r.Replay(context.Background(), "ntf-unknown")
	assert.Error(t, err)
	assert.Empty(t, pub.published)
}

func TestReplayer_Replay_NotFailed(t *testing.T) {
	r, mock, pub := newReplayerFixture(t)

	mock.ExpectQuery("FROM dead_letter_queue").
		WillReturnRows(deadLetterRow(true))
	mock.ExpectExec("UPDATE notifications").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := r.Replay(context.Background(), "ntf-1")
	assert.Error(t, err)
	assert.Empty(t, pub.published)
}

func TestReplayer_Replay_NotRetryable(t *testing.T) {
	// The retryable flag is the operator gate: until someone flips it, a
	// dead letter cannot be replayed and the notification stays FAILED.
	r, mock, pub := newReplayerFixture(t)

	mock.ExpectQuery("FROM dead_letter_queue").
		WillReturnRows(deadLetterRow(false))

	err := r.Replay(context.Background(), "ntf-1")
	assert.Error(t, err)
	assert.Empty(t, pub.published)
	assert.NoError(t, mock.ExpectationsWereMet())
}
