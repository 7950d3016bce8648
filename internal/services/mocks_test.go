package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"vr-theatre-marketplace/internal/messaging"
	"vr-theatre-marketplace/internal/models"
	"vr-theatre-marketplace/internal/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockContentStore struct {
	mock.Mock
}

func (m *mockContentStore) GetAvailability(ctx context.Context, id string) (models.Availability, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Availability), args.Error(1)
}

func (m *mockContentStore) ListAvailability(ctx context.Context, ids []string) (map[string]models.Availability, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.Availability), args.Error(1)
}

type mockOrderStore struct {
	mock.Mock
}

func (m *mockOrderStore) CreateGroup(ctx context.Context, group *models.OrderGroup, orders []*models.Order) error {
	return m.Called(ctx, group, orders).Error(0)
}

func (m *mockOrderStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockOrderStore) GetGroup(ctx context.Context, id string) (*models.OrderGroup, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderGroup), args.Error(1)
}

func (m *mockOrderStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockOrderStore) GetGroupBySession(ctx context.Context, sessionID string) (*models.OrderGroup, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderGroup), args.Error(1)
}

func (m *mockOrderStore) GetOrderBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *mockOrderStore) AttachGroupSession(ctx context.Context, groupID, sessionID string) error {
	return m.Called(ctx, groupID, sessionID).Error(0)
}

func (m *mockOrderStore) AttachOrderSession(ctx context.Context, orderID, sessionID string) error {
	return m.Called(ctx, orderID, sessionID).Error(0)
}

func (m *mockOrderStore) DeleteExpiredPending(ctx context.Context, cutoff time.Time) (int64, int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

type mockTicketStore struct {
	mock.Mock
}

func (m *mockTicketStore) GetByCode(ctx context.Context, code string) (*models.Ticket, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *mockTicketStore) ListByOrders(ctx context.Context, orderIDs []string) ([]*models.Ticket, error) {
	args := m.Called(ctx, orderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *mockTicketStore) Redeem(ctx context.Context, code, contentID string, usedBy *string) (*models.Ticket, error) {
	args := m.Called(ctx, code, contentID, usedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

type mockFulfillmentStore struct {
	mock.Mock
}

func (m *mockFulfillmentStore) FulfillGroup(ctx context.Context, groupID string, opts repositories.FulfillOptions) (*repositories.FulfillmentResult, error) {
	args := m.Called(ctx, groupID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.FulfillmentResult), args.Error(1)
}

func (m *mockFulfillmentStore) FulfillOrder(ctx context.Context, orderID string, opts repositories.FulfillOptions) (*repositories.FulfillmentResult, error) {
	args := m.Called(ctx, orderID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.FulfillmentResult), args.Error(1)
}

type mockSettingsStore struct {
	mock.Mock
}

func (m *mockSettingsStore) Get(ctx context.Context) (*models.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Settings), args.Error(1)
}

type mockPaymentEventStore struct {
	mock.Mock
}

func (m *mockPaymentEventStore) Record(ctx context.Context, eventID, eventType, sessionID string) (bool, error) {
	args := m.Called(ctx, eventID, eventType, sessionID)
	return args.Bool(0), args.Error(1)
}

func (m *mockPaymentEventStore) Seen(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

type mockGuard struct {
	mock.Mock
}

func (m *mockGuard) MarkSeen(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *mockGuard) Seen(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *mockGuard) Lock(ctx context.Context, sessionID string) (func(), error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CheckoutSession), args.Error(1)
}

type mockFulfiller struct {
	mock.Mock
}

func (m *mockFulfiller) FulfillGroup(ctx context.Context, groupID string, mode FulfillMode) ([]*models.Ticket, error) {
	args := m.Called(ctx, groupID, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

func (m *mockFulfiller) FulfillOrder(ctx context.Context, orderID string, mode FulfillMode) ([]*models.Ticket, error) {
	args := m.Called(ctx, orderID, mode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ticket), args.Error(1)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string, size int64) (string, error) {
	args := m.Called(ctx, key, reader, contentType, size)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) GetURL(key string) string {
	return m.Called(key).String(0)
}

func (m *mockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// recordingPublisher keeps every published envelope
type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.Envelope
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, env messaging.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, env)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

// recordingQueue keeps every enqueued message
type recordingQueue struct {
	mu       sync.Mutex
	messages []Message
	full     bool
}

func (q *recordingQueue) Enqueue(msg Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return false
	}
	q.messages = append(q.messages, msg)
	return true
}

// recordingMailer keeps every sent message
type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func readAll(r io.Reader) []byte {
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.Bytes()
}
