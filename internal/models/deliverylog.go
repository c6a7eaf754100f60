// internal/models/deliverylog.go
package models

import "time"

// EventType classifies a DeliveryLog entry.
type EventType string

const (
	EventQueued    EventType = "QUEUED"
	EventSent      EventType = "SENT"
	EventDelivered EventType = "DELIVERED"
	EventBounced   EventType = "BOUNCED"
	EventOpened    EventType = "OPENED"
	EventClicked   EventType = "CLICKED"
	EventFailed    EventType = "FAILED"
	EventRetried   EventType = "RETRIED"
)

// DeliveryLog is an append-only audit record. Rows are never mutated or
// deleted; the delivery timeline for a notification is reconstructed from
// them.
type DeliveryLog struct {
	ID             string
	NotificationID string
	Event          EventType
	Provider       string
	StatusCode     int
	Response       string
	CreatedAt      time.Time
}

// DeadLetter is the terminal record for a notification that exhausted its
// retries. Payload holds a JSON snapshot of the notification for manual
// replay; Retryable starts false and is flipped by an operator.
type DeadLetter struct {
	ID             string
	NotificationID string
	Reason         string
	Payload        []byte
	Retryable      bool
	CreatedAt      time.Time
}

// DeliveryAggregate is one counter row per (tenant, channel, UTC day).
// Counters are only ever mutated by atomic increment.
type DeliveryAggregate struct {
	TenantID       string
	Channel        Channel
	Day            time.Time
	TotalSent      int64
	TotalDelivered int64
	TotalFailed    int64
	TotalBounced   int64
	TotalOpened    int64
	TotalClicked   int64
}
