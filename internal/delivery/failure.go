// internal/delivery/failure.go
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"notification-pipeline/internal/common/errors"
	"notification-pipeline/internal/common/metrics"
	"notification-pipeline/internal/models"
	"notification-pipeline/internal/provider"
)

// handleFailure is the single path for every failed attempt. Retryable
// failures with budget left go back to QUEUED with an exponential delay;
// permanent failures and exhausted budgets go to FAILED plus one dead letter
// row. A permanent failure skips whatever retry budget remains.
func (w *Worker) handleFailure(ctx context.Context, n *models.Notification, res provider.Result) error {
	now := w.now()

	if res.Retryable && !n.RetriesExhausted() {
		retryCount := n.RetryCount + 1
		nextRetryAt := now.Add(Backoff(retryCount))
		if err := w.notifications.ScheduleRetry(ctx, n.ID, retryCount, nextRetryAt); err != nil {
			return errors.NewDatabaseUnavailableError(err)
		}

		w.appendLog(ctx, n, models.EventRetried, res, now)
		metrics.RetriesScheduled.WithLabelValues(string(n.Channel)).Inc()

		w.logger.Info("delivery failed, retry scheduled", map[string]interface{}{
			"notificationId": n.ID,
			"retryCount":     retryCount,
			"nextRetryAt":    nextRetryAt,
			"error":          res.Err,
		})
		return nil
	}

	if err := w.notifications.MarkFailed(ctx, n.ID, now); err != nil {
		return errors.NewDatabaseUnavailableError(err)
	}
	n.Status = models.StatusFailed
	n.FailedAt = &now

	w.appendLog(ctx, n, models.EventFailed, res, now)
	w.deadLetter(ctx, n, res, now)

	w.sink.Record(ctx, n.TenantID, n.Channel, models.EventFailed, now)
	metrics.DeliveriesTotal.WithLabelValues(string(n.Channel), "failed").Inc()
	metrics.DeadLettered.WithLabelValues(string(n.Channel)).Inc()

	w.logger.Error("delivery failed permanently", map[string]interface{}{
		"notificationId": n.ID,
		"retryCount":     n.RetryCount,
		"retryable":      res.Retryable,
		"error":          res.Err,
	})
	return nil
}

// deadLetter writes the terminal record. The unique notification_id
// constraint makes this idempotent under redelivery, and a write failure is
// logged rather than propagated: the notification is already FAILED and a
// redelivered message could not repair it.
func (w *Worker) deadLetter(ctx context.Context, n *models.Notification, res provider.Result, at time.Time) {
	payload, err := json.Marshal(n)
	if err != nil {
		w.logger.Error("dead letter payload marshal failed", map[string]interface{}{
			"notificationId": n.ID,
			"error":          err,
		})
		payload = []byte("{}")
	}

	reason := res.Err
	if res.Provider != "" {
		reason = fmt.Sprintf("%s: %s (status %d)", res.Provider, res.Err, res.StatusCode)
	}

	entry := &models.DeadLetter{
		ID:             uuid.New().String(),
		NotificationID: n.ID,
		Reason:         reason,
		Payload:        payload,
		Retryable:      false,
		CreatedAt:      at,
	}
	if err := w.deadLetters.Create(ctx, entry); err != nil {
		w.logger.Error("dead letter create failed", map[string]interface{}{
			"notificationId": n.ID,
			"error":          err,
		})
	}
}
