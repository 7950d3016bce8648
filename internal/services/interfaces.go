package services

import (
	"context"
	"io"
	"time"

	"vr-theatre-marketplace/internal/messaging"
	"vr-theatre-marketplace/internal/models"
	"vr-theatre-marketplace/internal/repositories"
)

// ContentStore is the read side of the inventory ledger
type ContentStore interface {
	GetAvailability(ctx context.Context, id string) (models.Availability, error)
	ListAvailability(ctx context.Context, ids []string) (map[string]models.Availability, error)
}

// OrderStore persists orders and order groups
type OrderStore interface {
	CreateGroup(ctx context.Context, group *models.OrderGroup, orders []*models.Order) error
	CreateOrder(ctx context.Context, order *models.Order) error
	GetGroup(ctx context.Context, id string) (*models.OrderGroup, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetGroupBySession(ctx context.Context, sessionID string) (*models.OrderGroup, error)
	GetOrderBySession(ctx context.Context, sessionID string) (*models.Order, error)
	AttachGroupSession(ctx context.Context, groupID, sessionID string) error
	AttachOrderSession(ctx context.Context, orderID, sessionID string) error
	DeleteExpiredPending(ctx context.Context, cutoff time.Time) (int64, int64, error)
}

// TicketStore reads and redeems issued tickets
type TicketStore interface {
	GetByCode(ctx context.Context, code string) (*models.Ticket, error)
	ListByOrders(ctx context.Context, orderIDs []string) ([]*models.Ticket, error)
	Redeem(ctx context.Context, code, contentID string, usedBy *string) (*models.Ticket, error)
}

// FulfillmentStore runs the paid/issue/decrement transaction
type FulfillmentStore interface {
	FulfillGroup(ctx context.Context, groupID string, opts repositories.FulfillOptions) (*repositories.FulfillmentResult, error)
	FulfillOrder(ctx context.Context, orderID string, opts repositories.FulfillOptions) (*repositories.FulfillmentResult, error)
}

// SettingsStore loads the platform settings
type SettingsStore interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// PaymentEventStore is the durable log of processed gateway events
type PaymentEventStore interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, eventID, eventType, sessionID string) (bool, error)
}

// WebhookGuard deduplicates gateway events and serializes work per session
type WebhookGuard interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) (bool, error)
	Lock(ctx context.Context, sessionID string) (func(), error)
}

// EventPublisher sends domain events
type EventPublisher interface {
	Publish(ctx context.Context, env messaging.Envelope) error
}

// Mailer delivers one message
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailQueue accepts messages for background delivery
type MailQueue interface {
	Enqueue(msg Message) bool
}

// StorageServiceInterface defines the interface for file storage operations
type StorageServiceInterface interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error)
	GetURL(key string) string
	Exists(ctx context.Context, key string) (bool, error)
}
