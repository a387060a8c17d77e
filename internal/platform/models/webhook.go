package models

import "encoding/json"

type WebhookEndpoint struct {
	ID        string   `json:"id"`
	TenantID  string   `json:"tenant_id"`
	URL       string   `json:"url"`
	Secret    string   `json:"-"`
	Events    []string `json:"events"` // JSON array in DB
	Enabled   bool     `json:"enabled"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
}

// SubscribedTo reports whether the endpoint wants the given event type.
func (w *WebhookEndpoint) SubscribedTo(event string) bool {
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

const (
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
)

// DeliveryAttempt is one try to deliver one event to one endpoint.
// One row per try; the full retry history is preserved, never overwritten.
type DeliveryAttempt struct {
	ID           string `json:"id"`
	EndpointID   string `json:"endpoint_id"`
	TenantID     string `json:"tenant_id"`
	Event        string `json:"event"`
	Payload      string `json:"payload"` // snapshot of the signed body
	Status       string `json:"status"`  // delivered, failed
	Attempt      int    `json:"attempt"`
	ResponseCode int    `json:"response_code"` // 0 when no response was received
	CreatedAt    int64  `json:"created_at"`
}

// Envelope is the outer wire shape of every webhook POST body. The three
// fields are fixed so receivers can verify the signature over the raw bytes
// before looking at the payload.
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"` // RFC3339
}
