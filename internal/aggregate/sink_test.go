// internal/aggregate/sink_test.go
package aggregate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-pipeline/internal/common/logger"
	"notification-pipeline/internal/models"
	"notification-pipeline/internal/store"
)

func newSinkFixture(t *testing.T) (*Sink, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSink(store.NewAggregateStore(db), logger.NewTestLogger(t)), mock
}

func TestSink_RecordCountableEvent(t *testing.T) {
	sink, mock := newSinkFixture(t)

	mock.ExpectExec("total_failed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	sink.Record(context.Background(), "tenant-1", models.ChannelSMS, models.EventFailed, time.Now())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSink_IgnoresBookkeepingEvents(t *testing.T) {
	sink, mock := newSinkFixture(t)

	sink.Record(context.Background(), "tenant-1", models.ChannelEmail, models.EventQueued, time.Now())
	sink.Record(context.Background(), "tenant-1", models.ChannelEmail, models.EventRetried, time.Now())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSink_SwallowsIncrementFailure(t *testing.T) {
	sink, mock := newSinkFixture(t)

	mock.ExpectExec("total_sent").
		WillReturnError(fmt.Errorf("table missing"))

	// Aggregation is best effort; the caller never sees the error.
	sink.Record(context.Background(), "tenant-1", models.ChannelEmail, models.EventSent, time.Now())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilSinkAndIndexerAreSafe(t *testing.T) {
	var sink *Sink
	sink.Record(context.Background(), "tenant-1", models.ChannelEmail, models.EventSent, time.Now())

	var ix *LogIndexer
	ix.Index(context.Background(), &models.DeliveryLog{ID: "log-1"})
}
