// internal/store/aggregates.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"notification-pipeline/internal/models"
)

// aggregateColumns maps countable events to their counter column. Columns
// are looked up here rather than interpolated from input, so the upsert
// below never sees an unvetted identifier.
var aggregateColumns = map[models.EventType]string{
	models.EventSent:      "total_sent",
	models.EventDelivered: "total_delivered",
	models.EventFailed:    "total_failed",
	models.EventBounced:   "total_bounced",
	models.EventOpened:    "total_opened",
	models.EventClicked:   "total_clicked",
}

// Countable reports whether event contributes to daily aggregates. QUEUED
// and RETRIED are audit-only.
func Countable(event models.EventType) bool {
	_, ok := aggregateColumns[event]
	return ok
}

// AggregateStore maintains the per (tenant, channel, UTC day) counter rows.
// Counters are only ever touched through the atomic upsert below; reading
// then writing back would lose updates under concurrent workers.
type AggregateStore struct {
	db *sql.DB
}

func NewAggregateStore(db *sql.DB) *AggregateStore {
	return &AggregateStore{db: db}
}

// Increment bumps exactly one counter for the aggregate row keyed by
// (tenant, channel, UTC midnight of occurredAt), creating the row on first
// touch.
func (s *AggregateStore) Increment(ctx context.Context, tenantID string, channel models.Channel, event models.EventType, occurredAt time.Time) error {
	column, ok := aggregateColumns[event]
	if !ok {
		return fmt.Errorf("event %s is not countable", event)
	}

	day := occurredAt.UTC().Truncate(24 * time.Hour)

	query := fmt.Sprintf(`
		INSERT INTO delivery_aggregates (tenant_id, channel, day, %[1]s)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (tenant_id, channel, day)
		DO UPDATE SET %[1]s = delivery_aggregates.%[1]s + 1`, column)

	if _, err := s.db.ExecContext(ctx, query, tenantID, string(channel), day); err != nil {
		return fmt.Errorf("increment aggregate %s: %w", column, err)
	}
	return nil
}
