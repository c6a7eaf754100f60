// internal/delivery/worker.go
package delivery

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"notification-pipeline/internal/aggregate"
	"notification-pipeline/internal/common/errors"
	"notification-pipeline/internal/common/logger"
	"notification-pipeline/internal/common/metrics"
	"notification-pipeline/internal/common/observability"
	"notification-pipeline/internal/models"
	"notification-pipeline/internal/provider"
	"notification-pipeline/internal/store"
)

// Worker is the queue handler for delivery messages. A returned error means
// the message offset stays uncommitted and the broker redelivers it; a nil
// return commits the message.
type Worker struct {
	notifications *store.NotificationStore
	recipients    *store.RecipientStore
	logs          *store.DeliveryLogStore
	deadLetters   *store.DeadLetterStore
	registry      *provider.Registry
	sink          *aggregate.Sink
	indexer       *aggregate.LogIndexer
	obs           *observability.Observability
	logger        logger.Logger

	sendTimeout time.Duration
	now         func() time.Time
}

func NewWorker(
	notifications *store.NotificationStore,
	recipients *store.RecipientStore,
	logs *store.DeliveryLogStore,
	deadLetters *store.DeadLetterStore,
	registry *provider.Registry,
	sink *aggregate.Sink,
	indexer *aggregate.LogIndexer,
	obs *observability.Observability,
	log logger.Logger,
	sendTimeout time.Duration,
) *Worker {
	return &Worker{
		notifications: notifications,
		recipients:    recipients,
		logs:          logs,
		deadLetters:   deadLetters,
		registry:      registry,
		sink:          sink,
		indexer:       indexer,
		obs:           obs,
		logger:        log.WithFields(map[string]interface{}{"component": "delivery-worker"}),
		sendTimeout:   sendTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// HandleNotification processes one queued notification ID end to end.
func (w *Worker) HandleNotification(ctx context.Context, notificationID string) error {
	started := w.now()
	status, err := w.process(ctx, notificationID)

	if w.obs != nil {
		w.obs.RecordMessageProcessed(ctx, status)
		w.obs.RecordProcessingDuration(ctx, w.now().Sub(started), status)
	}
	return err
}

func (w *Worker) process(ctx context.Context, notificationID string) (string, error) {
	n, err := w.notifications.GetByID(ctx, notificationID)
	if err == sql.ErrNoRows {
		// A message for a row that no longer exists carries no work.
		w.logger.Warn("notification not found, dropping message", map[string]interface{}{
			"notificationId": notificationID,
		})
		return "dropped", nil
	}
	if err != nil {
		return "error", errors.NewDatabaseUnavailableError(err)
	}

	retryCount, claimed, err := w.notifications.ClaimProcessing(ctx, n.ID)
	if err != nil {
		return "error", errors.NewDatabaseUnavailableError(err)
	}
	if !claimed {
		// Another worker holds this notification, or it already reached a
		// terminal state. Duplicate deliveries land here.
		w.logger.Debug("claim lost, skipping", map[string]interface{}{
			"notificationId": n.ID,
			"status":         n.Status,
		})
		return "skipped", nil
	}
	n.Status = models.StatusProcessing
	// The count as of the claim, not the pre-claim read: other workers may
	// have cycled this row through PROCESSING since the fetch above, and the
	// failure handler's increment must build on the latest value.
	n.RetryCount = retryCount

	address, addrErr := w.resolveAddress(ctx, n)
	if addrErr != nil {
		// Only a missing address is a delivery failure. Lookup infrastructure
		// errors must not consume the retry budget; returning them leaves the
		// message uncommitted for the broker to redeliver.
		if stdErr, ok := addrErr.(*errors.StandardError); ok && stdErr.Code == errors.ErrCodeAddressMissing {
			return "failed", w.handleFailure(ctx, n, provider.Failure("", 0, stdErr.Error(), stdErr.Retryable))
		}
		return "error", addrErr
	}

	p, regErr := w.registry.Get(n.Channel)
	if regErr != nil {
		return "failed", w.handleFailure(ctx, n, provider.Failure("", 0, regErr.Error(), false))
	}

	msg := provider.Message{
		To:      address,
		Subject: n.Subject,
		Body:    n.Body,
		Metadata: map[string]string{
			"notificationId": n.ID,
			"tenantId":       n.TenantID,
		},
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	sendStart := w.now()
	res := p.Send(sendCtx, msg)
	cancel()
	metrics.DeliveryDuration.WithLabelValues(string(n.Channel)).Observe(w.now().Sub(sendStart).Seconds())

	if !res.Success {
		return "failed", w.handleFailure(ctx, n, res)
	}

	sentAt := w.now()
	if err := w.notifications.MarkSent(ctx, n.ID, sentAt); err != nil {
		return "error", errors.NewDatabaseUnavailableError(err)
	}

	w.appendLog(ctx, n, models.EventSent, res, sentAt)
	w.sink.Record(ctx, n.TenantID, n.Channel, models.EventSent, sentAt)
	metrics.DeliveriesTotal.WithLabelValues(string(n.Channel), "sent").Inc()

	w.logger.Info("notification sent", map[string]interface{}{
		"notificationId": n.ID,
		"channel":        n.Channel,
		"provider":       res.Provider,
	})
	return "sent", nil
}

// resolveAddress looks up the channel-appropriate contact address. A missing
// address comes back as an ADDRESS_MISSING StandardError; lookup failures as
// DATABASE_UNAVAILABLE, which the caller propagates for redelivery.
func (w *Worker) resolveAddress(ctx context.Context, n *models.Notification) (string, error) {
	recipient, err := w.recipients.GetByID(ctx, n.TenantID, n.RecipientID)
	if err != nil {
		return "", errors.NewDatabaseUnavailableError(err)
	}
	if recipient == nil {
		return "", errors.NewAddressMissingError(n.RecipientID, string(n.Channel))
	}

	switch n.Channel {
	case models.ChannelEmail:
		if recipient.Email == "" {
			return "", errors.NewAddressMissingError(n.RecipientID, string(n.Channel))
		}
		return recipient.Email, nil
	case models.ChannelSMS:
		if recipient.Phone == "" {
			return "", errors.NewAddressMissingError(n.RecipientID, string(n.Channel))
		}
		return recipient.Phone, nil
	case models.ChannelPush:
		token, err := w.recipients.LatestActiveDeviceToken(ctx, n.RecipientID)
		if err != nil {
			return "", errors.NewDatabaseUnavailableError(err)
		}
		if token == "" {
			return "", errors.NewAddressMissingError(n.RecipientID, string(n.Channel))
		}
		return token, nil
	}
	return "", errors.NewAddressMissingError(n.RecipientID, string(n.Channel))
}

// appendLog writes the audit row and mirrors it into the search index. The
// store truncates oversized provider responses.
func (w *Worker) appendLog(ctx context.Context, n *models.Notification, event models.EventType, res provider.Result, at time.Time) {
	response := res.Response
	if response == "" {
		response = res.Err
	}
	entry := &models.DeliveryLog{
		ID:             uuid.New().String(),
		NotificationID: n.ID,
		Event:          event,
		Provider:       res.Provider,
		StatusCode:     res.StatusCode,
		Response:       response,
		CreatedAt:      at,
	}
	if err := w.logs.Append(ctx, entry); err != nil {
		w.logger.Warn("delivery log append failed", map[string]interface{}{
			"notificationId": n.ID,
			"event":          event,
			"error":          err,
		})
		return
	}
	w.indexer.Index(ctx, entry)
}
