package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/stretchr/testify/mock"

	"vr-theatre-marketplace/internal/middleware"
	"vr-theatre-marketplace/internal/models"
	"vr-theatre-marketplace/internal/services"
)

type mockCheckout struct{ mock.Mock }

func (m *mockCheckout) QuoteCart(ctx context.Context, lines []models.CartLine) (*services.CartQuote, error) {
	args := m.Called(ctx, lines)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CartQuote), args.Error(1)
}

func (m *mockCheckout) CheckoutCart(ctx context.Context, req services.CartCheckoutRequest) (*services.CheckoutResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CheckoutResult), args.Error(1)
}

func (m *mockCheckout) Purchase(ctx context.Context, req services.PurchaseRequest) (*services.CheckoutResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CheckoutResult), args.Error(1)
}

func (m *mockCheckout) PayOrder(ctx context.Context, orderID string, method services.PaymentMethod) (*services.CheckoutResult, error) {
	args := m.Called(ctx, orderID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CheckoutResult), args.Error(1)
}

func (m *mockCheckout) PayGroup(ctx context.Context, groupID string, method services.PaymentMethod) (*services.CheckoutResult, error) {
	args := m.Called(ctx, groupID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CheckoutResult), args.Error(1)
}

type mockReceipts struct{ mock.Mock }

func (m *mockReceipts) GetGroupReceipt(ctx context.Context, id string) (*services.GroupReceipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.GroupReceipt), args.Error(1)
}

func (m *mockReceipts) GetOrderReceipt(ctx context.Context, id string) (*services.OrderReceipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.OrderReceipt), args.Error(1)
}

type mockWebhook struct{ mock.Mock }

func (m *mockWebhook) HandleEvent(ctx context.Context, payload []byte, sigHeader string) error {
	return m.Called(ctx, payload, sigHeader).Error(0)
}

type mockTickets struct{ mock.Mock }

func (m *mockTickets) Redeem(ctx context.Context, code, contentID string, redeemer *string) (*models.Ticket, error) {
	args := m.Called(ctx, code, contentID, redeemer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *mockTickets) QRCode(ctx context.Context, code string) ([]byte, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

// testServer wires mocks into the real router
type testServer struct {
	checkout *mockCheckout
	receipts *mockReceipts
	webhook  *mockWebhook
	tickets  *mockTickets
	handler  http.Handler
}

func newTestServer(limiter *middleware.RateLimiter) *testServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := &testServer{
		checkout: new(mockCheckout),
		receipts: new(mockReceipts),
		webhook:  new(mockWebhook),
		tickets:  new(mockTickets),
	}
	s.handler = NewRouter(Handlers{
		Checkout: NewCheckoutHandler(s.checkout, logger),
		Orders:   NewOrderHandler(s.receipts, logger),
		Webhook:  NewWebhookHandler(s.webhook, logger),
		Tickets:  NewTicketHandler(s.tickets, s.tickets, logger),
		Health:   NewHealthHandler(fakePinger{}),
	}, RouterConfig{
		Logger:         logger,
		AllowedOrigins: []string{"*"},
		RedeemLimiter:  limiter,
	})
	return s
}

func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func httptestRecorder(h http.HandlerFunc, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(method, path, nil))
	return rr
}
