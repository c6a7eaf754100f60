// internal/aggregate/sink.go

// Package aggregate maintains the per-tenant daily delivery counters and the
// optional search index over delivery log rows. Everything here is best
// effort: a counter or index failure is logged and never fails a delivery.
package aggregate

import (
	"context"
	"time"

	"notification-pipeline/internal/common/logger"
	"notification-pipeline/internal/models"
	"notification-pipeline/internal/store"
)

// Sink feeds delivery events into the daily aggregate table.
type Sink struct {
	aggregates *store.AggregateStore
	logger     logger.Logger
}

func NewSink(aggregates *store.AggregateStore, log logger.Logger) *Sink {
	return &Sink{
		aggregates: aggregates,
		logger:     log.WithFields(map[string]interface{}{"component": "aggregate-sink"}),
	}
}

// Record increments the counter column for event if the event is countable.
// QUEUED and RETRIED are pipeline bookkeeping, not delivery outcomes, and are
// ignored.
func (s *Sink) Record(ctx context.Context, tenantID string, channel models.Channel, event models.EventType, occurredAt time.Time) {
	if s == nil || !store.Countable(event) {
		return
	}
	if err := s.aggregates.Increment(ctx, tenantID, channel, event, occurredAt); err != nil {
		s.logger.Warn("aggregate increment failed", map[string]interface{}{
			"tenantId": tenantID,
			"channel":  channel,
			"event":    event,
			"error":    err,
		})
	}
}
