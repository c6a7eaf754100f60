// internal/store/notifications.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"notification-pipeline/internal/models"
)

// NotificationStore persists notifications and owns every status transition.
// Transitions out of QUEUED, PENDING and PROCESSING are conditional updates
// (WHERE id AND status) so concurrent workers and overlapping scheduler
// sweeps cannot both move the same row.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const notificationColumns = `id, tenant_id, recipient_id, channel, subject, body,
	template_id, priority, idempotency_key, scheduled_at, status, retry_count,
	max_retries, next_retry_at, created_at, queued_at, sent_at, delivered_at, failed_at`

func (s *NotificationStore) Insert(ctx context.Context, n *models.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications
			(id, tenant_id, recipient_id, channel, subject, body, template_id,
			 priority, idempotency_key, scheduled_at, status, retry_count,
			 max_retries, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		n.ID, n.TenantID, n.RecipientID, string(n.Channel), n.Subject, n.Body,
		nullString(n.TemplateID), string(n.Priority), nullString(n.IdempotencyKey),
		n.ScheduledAt, string(n.Status), n.RetryCount, n.MaxRetries, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	return scanNotification(row)
}

// FindByIdempotencyKey returns the existing notification for a (tenant, key)
// pair, or nil when none exists.
func (s *NotificationStore) FindByIdempotencyKey(ctx context.Context, tenantID, key string) (*models.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE tenant_id = $1 AND idempotency_key = $2`, tenantID, key)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return n, err
}

// MarkQueued moves PENDING rows to QUEUED after a successful publish,
// stamping queued_at. Rows no longer PENDING are left alone.
func (s *NotificationStore) MarkQueued(ctx context.Context, ids []string, queuedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = $1, queued_at = $2
		WHERE id = ANY($3) AND status = $4`,
		string(models.StatusQueued), queuedAt, pq.Array(ids), string(models.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("mark queued: %w", err)
	}
	return nil
}

// ClaimProcessing is the compare-and-swap guard for the delivery worker:
// QUEUED -> PROCESSING. It returns false when another worker already claimed
// the row or the row is in any other state, in which case the message must
// be skipped. The returned retry count is read atomically with the claim;
// the row fetched before the claim may be stale if other workers cycled the
// notification through PROCESSING in between.
func (s *NotificationStore) ClaimProcessing(ctx context.Context, id string) (int, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE notifications
		SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING retry_count`,
		string(models.StatusProcessing), id, string(models.StatusQueued),
	)
	var retryCount int
	if err := row.Scan(&retryCount); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("claim processing: %w", err)
	}
	return retryCount, true, nil
}

// MarkSent finishes a successful delivery: PROCESSING -> SENT, stamping
// sent_at exactly once.
func (s *NotificationStore) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = $1, sent_at = $2
		WHERE id = $3 AND status = $4`,
		string(models.StatusSent), sentAt, id, string(models.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// ScheduleRetry puts a failed attempt back on the retry path:
// PROCESSING -> QUEUED with an incremented retry count and a future
// next_retry_at for the scheduler to pick up.
func (s *NotificationStore) ScheduleRetry(ctx context.Context, id string, retryCount int, nextRetryAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = $1, retry_count = $2, next_retry_at = $3
		WHERE id = $4 AND status = $5`,
		string(models.StatusQueued), retryCount, nextRetryAt, id, string(models.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("schedule retry: %w", err)
	}
	return nil
}

// MarkFailed is the terminal failure transition: PROCESSING -> FAILED with
// failed_at stamped once.
func (s *NotificationStore) MarkFailed(ctx context.Context, id string, failedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = $1, failed_at = $2
		WHERE id = $3 AND status = $4`,
		string(models.StatusFailed), failedAt, id, string(models.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// DueRetries finds QUEUED notifications whose backoff delay has elapsed.
func (s *NotificationStore) DueRetries(ctx context.Context, now time.Time, limit int) ([]string, error) {
	return s.queryIDs(ctx, `
		SELECT id FROM notifications
		WHERE status = $1 AND retry_count > 0 AND next_retry_at <= $2
		ORDER BY next_retry_at
		LIMIT $3`,
		string(models.StatusQueued), now, limit)
}

// StaleFresh finds QUEUED notifications whose initial publish is suspected
// lost: never retried, no pending backoff, queued longer ago than the
// staleness threshold.
func (s *NotificationStore) StaleFresh(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	return s.queryIDs(ctx, `
		SELECT id FROM notifications
		WHERE status = $1 AND retry_count = 0 AND next_retry_at IS NULL
			AND queued_at <= $2
		ORDER BY queued_at
		LIMIT $3`,
		string(models.StatusQueued), olderThan, limit)
}

// DuePending finds PENDING notifications ready for their first publish:
// either the admission-time publish failed (created long ago, no schedule)
// or a future-dated scheduled_at has come due.
func (s *NotificationStore) DuePending(ctx context.Context, now, createdBefore time.Time, limit int) ([]string, error) {
	return s.queryIDs(ctx, `
		SELECT id FROM notifications
		WHERE status = $1
			AND ((scheduled_at IS NULL AND created_at <= $2) OR scheduled_at <= $3)
		ORDER BY created_at
		LIMIT $4`,
		string(models.StatusPending), createdBefore, now, limit)
}

// ClearNextRetry resets next_retry_at after a re-publish so the same rows are
// not swept again before a worker has had a chance to claim them.
func (s *NotificationStore) ClearNextRetry(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET next_retry_at = NULL WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("clear next retry: %w", err)
	}
	return nil
}

// TouchQueuedAt re-stamps queued_at after a stale-fresh re-publish so the
// rows leave the staleness window.
func (s *NotificationStore) TouchQueuedAt(ctx context.Context, ids []string, queuedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET queued_at = $1 WHERE id = ANY($2)`,
		queuedAt, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("touch queued at: %w", err)
	}
	return nil
}

// Requeue resets a dead-lettered notification for operator replay:
// FAILED -> QUEUED with a fresh retry budget.
func (s *NotificationStore) Requeue(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications
		SET status = $1, retry_count = 0, next_retry_at = NULL, queued_at = $2
		WHERE id = $3 AND status = $4`,
		string(models.StatusQueued), time.Now().UTC(), id, string(models.StatusFailed),
	)
	if err != nil {
		return false, fmt.Errorf("requeue: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *NotificationStore) queryIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var n models.Notification
	var subject, body, templateID, idempotencyKey sql.NullString
	var scheduledAt, nextRetryAt, queuedAt, sentAt, deliveredAt, failedAt sql.NullTime
	var channel, priority, status string

	err := row.Scan(
		&n.ID, &n.TenantID, &n.RecipientID, &channel, &subject, &body,
		&templateID, &priority, &idempotencyKey, &scheduledAt, &status,
		&n.RetryCount, &n.MaxRetries, &nextRetryAt, &n.CreatedAt,
		&queuedAt, &sentAt, &deliveredAt, &failedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Channel = models.Channel(channel)
	n.Priority = models.Priority(priority)
	n.Status = models.Status(status)
	n.Subject = subject.String
	n.Body = body.String
	n.TemplateID = templateID.String
	n.IdempotencyKey = idempotencyKey.String
	n.ScheduledAt = timePtr(scheduledAt)
	n.NextRetryAt = timePtr(nextRetryAt)
	n.QueuedAt = timePtr(queuedAt)
	n.SentAt = timePtr(sentAt)
	n.DeliveredAt = timePtr(deliveredAt)
	n.FailedAt = timePtr(failedAt)
	return &n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
