// internal/scheduler/sweeper.go
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"notification-pipeline/internal/common/config"
	"notification-pipeline/internal/common/logger"
	"notification-pipeline/internal/common/metrics"
	"notification-pipeline/internal/models"
	"notification-pipeline/internal/queue"
	"notification-pipeline/internal/store"
)

// Sweeper implements the scheduler tick. Each sweep publishes its batch
// before clearing the marker that selected it, so a crash between the two
// steps can only cause a duplicate publish, which the worker's claim guard
// absorbs. The reverse order could strand rows that match no sweep.
type Sweeper struct {
	notifications *store.NotificationStore
	logs          *store.DeliveryLogStore
	publisher     queue.Publisher
	logger        logger.Logger

	batchSize      int
	staleThreshold time.Duration
	now            func() time.Time
}

func NewSweeper(
	notifications *store.NotificationStore,
	logs *store.DeliveryLogStore,
	publisher queue.Publisher,
	log logger.Logger,
	cfg config.SchedulerConfig,
) *Sweeper {
	return &Sweeper{
		notifications:  notifications,
		logs:           logs,
		publisher:      publisher,
		logger:         log.WithFields(map[string]interface{}{"component": "sweeper"}),
		batchSize:      cfg.BatchSize,
		staleThreshold: time.Duration(cfg.StaleThreshold) * time.Millisecond,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Sweep runs all three recovery passes. Sweeps are independent; one failing
// does not stop the others.
func (s *Sweeper) Sweep(ctx context.Context) {
	s.sweepDueRetries(ctx)
	s.sweepStaleFresh(ctx)
	s.sweepDuePending(ctx)
}

// sweepDueRetries re-publishes QUEUED rows whose backoff delay has elapsed.
func (s *Sweeper) sweepDueRetries(ctx context.Context) {
	now := s.now()
	ids, err := s.notifications.DueRetries(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error("due-retries query failed", map[string]interface{}{"error": err})
		return
	}
	if len(ids) == 0 {
		return
	}

	if err := s.publisher.PublishBatch(ctx, ids); err != nil {
		s.logger.Error("due-retries publish failed", map[string]interface{}{
			"count": len(ids),
			"error": err,
		})
		return
	}
	if err := s.notifications.ClearNextRetry(ctx, ids); err != nil {
		// Worst case the rows are swept and published again; the worker's
		// claim guard drops the duplicates.
		s.logger.Warn("clear next retry failed after publish", map[string]interface{}{
			"count": len(ids),
			"error": err,
		})
	}

	metrics.SchedulerRequeued.WithLabelValues("retry").Add(float64(len(ids)))
	s.logger.Info("due retries re-published", map[string]interface{}{"count": len(ids)})
}

// sweepStaleFresh re-publishes QUEUED rows whose first publish is suspected
// lost, then re-stamps queued_at to move them out of the staleness window.
func (s *Sweeper) sweepStaleFresh(ctx context.Context) {
	now := s.now()
	ids, err := s.notifications.StaleFresh(ctx, now.Add(-s.staleThreshold), s.batchSize)
	if err != nil {
		s.logger.Error("stale-fresh query failed", map[string]interface{}{"error": err})
		return
	}
	if len(ids) == 0 {
		return
	}

	if err := s.publisher.PublishBatch(ctx, ids); err != nil {
		s.logger.Error("stale-fresh publish failed", map[string]interface{}{
			"count": len(ids),
			"error": err,
		})
		return
	}
	if err := s.notifications.TouchQueuedAt(ctx, ids, now); err != nil {
		s.logger.Warn("touch queued_at failed after publish", map[string]interface{}{
			"count": len(ids),
			"error": err,
		})
	}

	metrics.SchedulerRequeued.WithLabelValues("stale").Add(float64(len(ids)))
	s.logger.Info("stale queued rows re-published", map[string]interface{}{"count": len(ids)})
}

// sweepDuePending gives PENDING rows their first publish: future-dated rows
// whose schedule has come due, and rows whose admission-time publish failed.
func (s *Sweeper) sweepDuePending(ctx context.Context) {
	now := s.now()
	ids, err := s.notifications.DuePending(ctx, now, now.Add(-s.staleThreshold), s.batchSize)
	if err != nil {
		s.logger.Error("due-pending query failed", map[string]interface{}{"error": err})
		return
	}
	if len(ids) == 0 {
		return
	}

	if err := s.publisher.PublishBatch(ctx, ids); err != nil {
		s.logger.Error("due-pending publish failed", map[string]interface{}{
			"count": len(ids),
			"error": err,
		})
		return
	}
	if err := s.notifications.MarkQueued(ctx, ids, now); err != nil {
		s.logger.Warn("mark queued failed after publish", map[string]interface{}{
			"count": len(ids),
			"error": err,
		})
		return
	}

	for _, id := range ids {
		if err := s.logs.Append(ctx, &models.DeliveryLog{
			ID:             uuid.New().String(),
			NotificationID: id,
			Event:          models.EventQueued,
			CreatedAt:      now,
		}); err != nil {
			s.logger.Warn("queued log append failed", map[string]interface{}{
				"notificationId": id,
				"error":          err,
			})
		}
	}

	metrics.SchedulerRequeued.WithLabelValues("pending").Add(float64(len(ids)))
	s.logger.Info("due pending rows published", map[string]interface{}{"count": len(ids)})
}
