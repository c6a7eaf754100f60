// internal/store/recipients.go
package store

import (
	"context"
	"database/sql"

	"notification-pipeline/internal/models"
)

// RecipientStore reads recipient, preference, template and device token rows.
// These tables are owned by the CRUD layer; the pipeline only queries them.
type RecipientStore struct {
	db *sql.DB
}

func NewRecipientStore(db *sql.DB) *RecipientStore {
	return &RecipientStore{db: db}
}

func (s *RecipientStore) GetByID(ctx context.Context, tenantID, id string) (*models.Recipient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, email, phone, timezone
		FROM recipients WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanRecipient(row)
}

func (s *RecipientStore) FindByEmail(ctx context.Context, tenantID, email string) (*models.Recipient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, email, phone, timezone
		FROM recipients WHERE tenant_id = $1 AND email = $2`, tenantID, email)
	return scanRecipient(row)
}

func (s *RecipientStore) FindByPhone(ctx context.Context, tenantID, phone string) (*models.Recipient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, email, phone, timezone
		FROM recipients WHERE tenant_id = $1 AND phone = $2`, tenantID, phone)
	return scanRecipient(row)
}

// GetPreference returns the (recipient, channel) preference row, or nil when
// no preference exists (which means the channel is allowed).
func (s *RecipientStore) GetPreference(ctx context.Context, recipientID string, channel models.Channel) (*models.NotificationPreference, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT recipient_id, channel, enabled, quiet_hours_start, quiet_hours_end
		FROM notification_preferences
		WHERE recipient_id = $1 AND channel = $2`, recipientID, string(channel))

	var p models.NotificationPreference
	var channelStr string
	var start, end sql.NullString
	err := row.Scan(&p.RecipientID, &channelStr, &p.Enabled, &start, &end)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Channel = models.Channel(channelStr)
	p.QuietHoursStart = start.String
	p.QuietHoursEnd = end.String
	return &p, nil
}

func (s *RecipientStore) GetTemplate(ctx context.Context, tenantID, templateID string) (*models.NotificationTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, subject, body
		FROM notification_templates WHERE tenant_id = $1 AND id = $2`, tenantID, templateID)

	var t models.NotificationTemplate
	var subject sql.NullString
	err := row.Scan(&t.ID, &t.TenantID, &t.Name, &subject, &t.Body)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Subject = subject.String
	return &t, nil
}

// LatestActiveDeviceToken resolves the push target for a recipient: the most
// recently registered token still marked active.
func (s *RecipientStore) LatestActiveDeviceToken(ctx context.Context, recipientID string) (string, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token FROM device_tokens
		WHERE recipient_id = $1 AND active = true
		ORDER BY created_at DESC
		LIMIT 1`, recipientID)

	var token string
	err := row.Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func scanRecipient(row rowScanner) (*models.Recipient, error) {
	var r models.Recipient
	var email, phone, timezone sql.NullString
	err := row.Scan(&r.ID, &r.TenantID, &email, &phone, &timezone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Email = email.String
	r.Phone = phone.String
	r.Timezone = timezone.String
	return &r, nil
}
