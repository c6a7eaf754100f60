// internal/scheduler/sweeper_test.go
package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-pipeline/internal/common/config"
	"notification-pipeline/internal/common/logger"
	"notification-pipeline/internal/store"
)

type fakePublisher struct {
	batches [][]string
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, id string) error {
	return f.PublishBatch(ctx, []string{id})
}

func (f *fakePublisher) PublishBatch(ctx context.Context, ids []string) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, ids)
	return nil
}

func newSweeperFixture(t *testing.T) (*Sweeper, sqlmock.Sqlmock, *fakePublisher) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pub := &fakePublisher{}
	sw := NewSweeper(
		store.NewNotificationStore(db),
		store.NewDeliveryLogStore(db),
		pub,
		logger.NewTestLogger(t),
		config.SchedulerConfig{PollInterval: 10000, BatchSize: 100, StaleThreshold: 60000},
	)
	sw.now = func() time.Time {
		return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	}
	return sw, mock, pub
}

func idRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id"})
	for _, id := range ids {
		rows.AddRow(id)
	}
	return rows
}

func TestSweeper_DueRetries(t *testing.T) {
	sw, mock, pub := newSweeperFixture(t)

	mock.ExpectQuery("retry_count > 0").
		WillReturnRows(idRows("ntf-1", "ntf-2"))
	mock.ExpectExec("next_retry_at = NULL").
		WillReturnResult(sqlmock.NewResult(0, 2))

	sw.sweepDueRetries(context.Background())

	require.Len(t, pub.batches, 1)
	assert.Equal(t, []string{"ntf-1", "ntf-2"}, pub.batches[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeper_DueRetries_PublishFailureLeavesMarker(t *testing.T) {
	sw, mock, pub := newSweeperFixture(t)
	pub.err = fmt.Errorf("broker down")

	// next_retry_at must survive a failed publish so the next tick sweeps
	// the same rows again.
	mock.ExpectQuery("retry_count > 0").
		WillReturnRows(idRows("ntf-1"))

	sw.sweepDueRetries(context.Background())

	assert.Empty(t, pub.batches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeper_StaleFresh(t *testing.T) {
	sw, mock, pub := newSweeperFixture(t)

	mock.ExpectQuery("retry_count = 0").
		WillReturnRows(idRows("ntf-3"))
	mock.ExpectExec("SET queued_at").
		WillReturnResult(sqlmock.NewResult(0, 1))

	sw.sweepStaleFresh(context.Background())

	require.Len(t, pub.batches, 1)
	assert.Equal(t, []string{"ntf-3"}, pub.batches[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeper_DuePending(t *testing.T) {
	sw, mock, pub := newSweeperFixture(t)

	mock.ExpectQuery("scheduled_at IS NULL").
		WillReturnRows(idRows("ntf-4", "ntf-5"))
	mock.ExpectExec("UPDATE notifications").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO delivery_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO delivery_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	sw.sweepDuePending(context.Background())

	require.Len(t, pub.batches, 1)
	assert.Equal(t, []string{"ntf-4", "ntf-5"}, pub.batches[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeper_EmptySweepsPublishNothing(t *testing.T) {
	sw, mock, pub := newSweeperFixture(t)

	mock.ExpectQuery("retry_count > 0").WillReturnRows(idRows())
	mock.ExpectQuery("retry_count = 0").WillReturnRows(idRows())
	mock.ExpectQuery("scheduled_at IS NULL").WillReturnRows(idRows())

	sw.Sweep(context.Background())

	assert.Empty(t, pub.batches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweeper_QueryFailureDoesNotStopOtherSweeps(t *testing.T) {
	sw, mock, pub := newSweeperFixture(t)

	mock.ExpectQuery("retry_count > 0").
		WillReturnError(fmt.Errorf("connection lost"))
	mock.ExpectQuery("retry_count = 0").
		WillReturnRows(idRows("ntf-6"))
	mock.ExpectExec("SET queued_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("scheduled_at IS NULL").
		WillReturnRows(idRows())

	sw.Sweep(context.Background())

	require.Len(t, pub.batches, 1)
	assert.Equal(t, []string{"ntf-6"}, pub.batches[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}
