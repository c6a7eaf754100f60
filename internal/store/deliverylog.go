// internal/store/deliverylog.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"notification-pipeline/internal/models"
)

// MaxResponseLength caps the provider response/error text stored per log row.
const MaxResponseLength = 1000

// DeliveryLogStore appends audit events. The table is append-only; there are
// no update or delete paths.
type DeliveryLogStore struct {
	db *sql.DB
}

func NewDeliveryLogStore(db *sql.DB) *DeliveryLogStore {
	return &DeliveryLogStore{db: db}
}

func (s *DeliveryLogStore) Append(ctx context.Context, entry *models.DeliveryLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_logs
			(id, notification_id, event, provider, status_code, response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.NotificationID, string(entry.Event),
		nullString(entry.Provider), entry.StatusCode,
		nullString(Truncate(entry.Response)), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append delivery log: %w", err)
	}
	return nil
}

// Truncate bounds stored response/error text to MaxResponseLength characters.
// The cut counts runes, not bytes, so a multi-byte response is never split
// mid-rune into invalid UTF-8.
func Truncate(s string) string {
	if len(s) <= MaxResponseLength {
		return s
	}
	runes := []rune(s)
	if len(runes) <= MaxResponseLength {
		return s
	}
	return string(runes[:MaxResponseLength])
}
