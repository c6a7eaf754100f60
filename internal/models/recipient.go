// internal/models/recipient.go
package models

import "time"

// Recipient rows are owned by the CRUD layer; the pipeline reads them to
// resolve contact addresses.
type Recipient struct {
	ID       string
	TenantID string
	Email    string
	Phone    string
	// Timezone is an IANA zone name, e.g. "Europe/Berlin". Empty means UTC.
	Timezone string
}

// NotificationPreference is per (recipient, channel) consent state. A missing
// row means the channel is allowed with no quiet hours.
type NotificationPreference struct {
	RecipientID string
	Channel     Channel
	Enabled     bool
	// Quiet hours are local wall-clock times ("15:04") in the recipient's
	// timezone. Both empty means no quiet window.
	QuietHoursStart string
	QuietHoursEnd   string
}

// NotificationTemplate is a tenant-owned message template with {{variable}}
// placeholders in subject and body.
type NotificationTemplate struct {
	ID       string
	TenantID string
	Name     string
	Subject  string
	Body     string
}

// DeviceToken is a registered push target. The worker uses the most recently
// registered active token per recipient.
type DeviceToken struct {
	ID          string
	RecipientID string
	Token       string
	Active      bool
	CreatedAt   time.Time
}
