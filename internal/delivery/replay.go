// internal/delivery/replay.go
package delivery

import (
	"context"
	"fmt"

	"notification-pipeline/internal/common/errors"
	"notification-pipeline/internal/common/logger"
	"notification-pipeline/internal/queue"
	"notification-pipeline/internal/store"
)

// Replayer is the operator path for dead-lettered notifications: reset the
// retry budget, publish the ID again and retire the dead letter row.
type Replayer struct {
	notifications *store.NotificationStore
	deadLetters   *store.DeadLetterStore
	publisher     queue.Publisher
	logger        logger.Logger
}

func NewReplayer(
	notifications *store.NotificationStore,
	deadLetters *store.DeadLetterStore,
	publisher queue.Publisher,
	log logger.Logger,
) *Replayer {
	return &Replayer{
		notifications: notifications,
		deadLetters:   deadLetters,
		publisher:     publisher,
		logger:        log.WithFields(map[string]interface{}{"component": "replayer"}),
	}
}

// Replay requeues one dead-lettered notification. Only FAILED notifications
// whose dead letter entry an operator has flipped to retryable (via
// DeadLetterStore.MarkRetryable) are eligible.
func (r *Replayer) Replay(ctx context.Context, notificationID string) error {
	entry, err := r.deadLetters.GetByNotificationID(ctx, notificationID)
	if err != nil {
		return errors.NewDatabaseUnavailableError(err)
	}
	if entry == nil {
		return fmt.Errorf("no dead letter entry for notification %s", notificationID)
	}
	if !entry.Retryable {
		return fmt.Errorf("dead letter for notification %s is not marked retryable", notificationID)
	}

	requeued, err := r.notifications.Requeue(ctx, notificationID)
	if err != nil {
		return errors.NewDatabaseUnavailableError(err)
	}
	if !requeued {
		return fmt.Errorf("notification %s is not in a replayable state", notificationID)
	}

	if err := r.publisher.Publish(ctx, notificationID); err != nil {
		// The row is QUEUED with no retry marker; the stale-fresh sweep
		// picks it up on the next tick.
		r.logger.Warn("replay publish failed, leaving to scheduler", map[string]interface{}{
			"notificationId": notificationID,
			"error":          err,
		})
	}

	if err := r.deadLetters.Delete(ctx, notificationID); err != nil {
		r.logger.Warn("dead letter delete failed after replay", map[string]interface{}{
			"notificationId": notificationID,
			"error":          err,
		})
	}

	r.logger.Info("dead letter replayed", map[string]interface{}{
		"notificationId": notificationID,
	})
	return nil
}
