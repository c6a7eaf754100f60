// internal/queue/envelope.go
package queue

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Envelope is the queue wire contract: each message carries just the
// notification ID, keyed by the same ID for partition affinity.
type Envelope struct {
	NotificationID string `json:"notificationId"`
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// ParseEnvelope decodes a message value and rejects envelopes without a
// notification ID.
func ParseEnvelope(value []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(value, &e); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if strings.TrimSpace(e.NotificationID) == "" {
		return Envelope{}, fmt.Errorf("envelope missing notificationId")
	}
	return e, nil
}
