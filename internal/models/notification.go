// internal/models/notification.go
package models

import "time"

// Channel identifies the delivery medium for a notification.
type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
	ChannelPush  Channel = "PUSH"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

// Status is the notification lifecycle state.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusQueued     Status = "QUEUED"
	StatusProcessing Status = "PROCESSING"
	StatusSent       Status = "SENT"
	StatusFailed     Status = "FAILED"
	// StatusCancelled exists in the schema for administrative use; the
	// delivery worker does not enforce it.
	StatusCancelled Status = "CANCELLED"
)

// Priority is advisory only; it does not affect queue ordering.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityNormal   Priority = "NORMAL"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Notification is the unit of work moving through the delivery pipeline.
type Notification struct {
	ID          string
	TenantID    string
	RecipientID string

	Channel    Channel
	Subject    string
	Body       string
	TemplateID string
	Priority   Priority

	IdempotencyKey string
	ScheduledAt    *time.Time

	Status      Status
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time

	CreatedAt   time.Time
	QueuedAt    *time.Time
	SentAt      *time.Time
	DeliveredAt *time.Time
	FailedAt    *time.Time
}

// RetriesExhausted reports whether another failed attempt would exceed the
// notification's retry budget.
func (n *Notification) RetriesExhausted() bool {
	return n.RetryCount >= n.MaxRetries
}
