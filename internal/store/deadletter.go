// internal/store/deadletter.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"notification-pipeline/internal/models"
)

// DeadLetterStore holds terminal failures awaiting manual intervention. The
// pipeline never consumes these rows automatically.
type DeadLetterStore struct {
	db *sql.DB
}

func NewDeadLetterStore(db *sql.DB) *DeadLetterStore {
	return &DeadLetterStore{db: db}
}

// Create inserts the dead letter entry for a notification. notification_id
// carries a unique constraint, so a failure handler invoked twice for the
// same terminal failure still produces exactly one row.
func (s *DeadLetterStore) Create(ctx context.Context, entry *models.DeadLetter) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dead_letter_queue
			(id, notification_id, reason, payload, retryable, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (notification_id) DO NOTHING`,
		entry.ID, entry.NotificationID, entry.Reason, entry.Payload,
		entry.Retryable, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create dead letter: %w", err)
	}
	return nil
}

func (s *DeadLetterStore) GetByNotificationID(ctx context.Context, notificationID string) (*models.DeadLetter, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, notification_id, reason, payload, retryable, created_at
		FROM dead_letter_queue WHERE notification_id = $1`, notificationID)

	var d models.DeadLetter
	err := row.Scan(&d.ID, &d.NotificationID, &d.Reason, &d.Payload, &d.Retryable, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// MarkRetryable flips the operator replay flag.
func (s *DeadLetterStore) MarkRetryable(ctx context.Context, notificationID string, retryable bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE dead_letter_queue SET retryable = $1 WHERE notification_id = $2`,
		retryable, notificationID)
	if err != nil {
		return fmt.Errorf("mark retryable: %w", err)
	}
	return nil
}

// Delete removes the entry once an operator has claimed it for replay.
func (s *DeadLetterStore) Delete(ctx context.Context, notificationID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM dead_letter_queue WHERE notification_id = $1`, notificationID)
	if err != nil {
		return fmt.Errorf("delete dead letter: %w", err)
	}
	return nil
}
