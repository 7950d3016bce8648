package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderPaid         = "order.paid"
	EventTicketsIssued     = "tickets.issued"
	EventInventoryOversold = "inventory.oversold"
)

// Producer names this service in every envelope
const Producer = "checkout-service"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order group or order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPaidPayload struct {
	OrderGroupID string   `json:"order_group_id,omitempty"`
	OrderIDs     []string `json:"order_ids"`
	BuyerEmail   string   `json:"buyer_email"`
	TotalCents   int64    `json:"total_cents"`
	Currency     string   `json:"currency"`
}

type TicketsIssuedPayload struct {
	OrderID   string   `json:"order_id"`
	ContentID string   `json:"content_id"`
	Codes     []string `json:"codes"`
}

type InventoryOversoldPayload struct {
	ContentID       string `json:"content_id"`
	Title           string `json:"title,omitempty"`
	Requested       int    `json:"requested"`
	AvailableBefore int    `json:"available_before"`
	CorrelationID   string `json:"correlation_id,omitempty"`
}

// NewEnvelope wraps a payload with a fresh event id
func NewEnvelope(eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      Producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// UnwrapPayload decodes the payload of an envelope
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
