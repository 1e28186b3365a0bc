package events

import (
	"encoding/json"
	"time"
)

const (
	TopicInvoiceRequested = "invoice.requested"

	EventInvoiceRequested = "InvoiceRequested"
)

// Envelope wraps every event on the wire.
type Envelope struct {
	EventID       string          `json:"event_id"`   // uuid
	EventType     string          `json:"event_type"` // one of the consts above
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"` // RFC3339
	Producer      string          `json:"producer"`    // e.g. "freefinance-bridge-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// InvoiceRequestedPayload identifies the Magento order to invoice. Either
// EntityID or IncrementID must be set; OrderComment is free text carried
// into the invoice's internal description.
type InvoiceRequestedPayload struct {
	EntityID     int    `json:"entity_id,omitempty"`
	IncrementID  string `json:"increment_id,omitempty"`
	OrderComment string `json:"order_comment,omitempty"`
}

// Partition key = event id, so retries of the same request stay ordered.
func PartitionKey(id string) []byte { return []byte(id) }
