package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vr-theatre-marketplace/internal/models"
)

func TestOrderService_GetGroupReceipt(t *testing.T) {
	t.Run("paid group lists tickets", func(t *testing.T) {
		orders, tickets := new(mockOrderStore), new(mockTicketStore)
		svc := NewOrderService(orders, tickets, 48*time.Hour, discardLogger())

		orders.On("GetGroup", mock.Anything, "g-1").Return(&models.OrderGroup{
			ID:     "g-1",
			Status: models.OrderPaid,
			Orders: []*models.Order{{ID: "o-1"}, {ID: "o-2"}},
		}, nil)
		tickets.On("ListByOrders", mock.Anything, []string{"o-1", "o-2"}).Return([]*models.Ticket{{Code: "AAAA-BBBB"}}, nil)

		receipt, err := svc.GetGroupReceipt(context.Background(), "g-1")

		require.NoError(t, err)
		assert.Equal(t, "g-1", receipt.ID)
		assert.Len(t, receipt.Tickets, 1)
	})

	t.Run("pending group has no tickets", func(t *testing.T) {
		orders, tickets := new(mockOrderStore), new(mockTicketStore)
		svc := NewOrderService(orders, tickets, 48*time.Hour, discardLogger())
		orders.On("GetGroup", mock.Anything, "g-2").Return(&models.OrderGroup{ID: "g-2", Status: models.OrderPending}, nil)

		receipt, err := svc.GetGroupReceipt(context.Background(), "g-2")

		require.NoError(t, err)
		assert.NotNil(t, receipt.Tickets)
		assert.Empty(t, receipt.Tickets)
		tickets.AssertNotCalled(t, "ListByOrders", mock.Anything, mock.Anything)
	})

	t.Run("unknown group", func(t *testing.T) {
		orders := new(mockOrderStore)
		svc := NewOrderService(orders, new(mockTicketStore), 48*time.Hour, discardLogger())
		orders.On("GetGroup", mock.Anything, "nope").Return(nil, models.ErrOrderGroupNotFound)

		_, err := svc.GetGroupReceipt(context.Background(), "nope")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestOrderService_GetOrderReceipt(t *testing.T) {
	orders, tickets := new(mockOrderStore), new(mockTicketStore)
	svc := NewOrderService(orders, tickets, 48*time.Hour, discardLogger())

	orders.On("GetOrder", mock.Anything, "o-1").Return(&models.Order{ID: "o-1", Status: models.OrderPaid}, nil)
	tickets.On("ListByOrders", mock.Anything, []string{"o-1"}).Return(nil, errors.New("db down"))

	_, err := svc.GetOrderReceipt(context.Background(), "o-1")
	assert.ErrorContains(t, err, "failed to load tickets")
}

func TestOrderService_ExpireStale(t *testing.T) {
	orders := new(mockOrderStore)
	svc := NewOrderService(orders, new(mockTicketStore), 48*time.Hour, discardLogger())
	now := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	orders.On("DeleteExpiredPending", mock.Anything, now.Add(-48*time.Hour)).Return(int64(2), int64(5), nil)

	require.NoError(t, svc.ExpireStale(context.Background()))
	orders.AssertExpectations(t)

	disabled := NewOrderService(orders, new(mockTicketStore), 0, discardLogger())
	require.NoError(t, disabled.ExpireStale(context.Background()))
	orders.AssertNumberOfCalls(t, "DeleteExpiredPending", 1)
}

func TestTicketService_QRCode(t *testing.T) {
	tickets := new(mockTicketStore)
	svc := NewTicketService(tickets, NewQRGenerator(96, 4))

	tickets.On("GetByCode", mock.Anything, "AAAA-BBBB").Return(&models.Ticket{Code: "AAAA-BBBB"}, nil)
	tickets.On("GetByCode", mock.Anything, "ZZZZ-ZZZZ").Return(nil, models.ErrTicketNotFound)

	data, err := svc.QRCode(context.Background(), " aaaa-bbbb ")
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = svc.QRCode(context.Background(), "zzzz-zzzz")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.QRCode(context.Background(), "   ")
	assert.True(t, models.IsValidationError(err))
}

func TestRedemptionService_Redeem(t *testing.T) {
	staff := "gate-3"

	tests := []struct {
		name      string
		code      string
		contentID string
		storeErr  error
		wantErr   error
	}{
		{"admitted", "aaaa-bbbb", contentA, nil, nil},
		{"already used", "AAAA-BBBB", contentA, models.ErrAlreadyUsed, models.ErrAlreadyUsed},
		{"wrong show", "AAAA-BBBB", contentB, models.ErrContentMismatch, models.ErrContentMismatch},
		{"unknown code", "NOPE-NOPE", contentA, models.ErrTicketNotFound, models.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tickets := new(mockTicketStore)
			svc := NewRedemptionService(tickets, discardLogger())

			code := models.NormalizeTicketCode(tt.code)
			if tt.storeErr != nil {
				tickets.On("Redeem", mock.Anything, code, tt.contentID, &staff).Return(nil, tt.storeErr)
			} else {
				now := time.Now()
				tickets.On("Redeem", mock.Anything, code, tt.contentID, &staff).
					Return(&models.Ticket{ID: "t-1", Code: code, UsedAt: &now, UsedBy: &staff}, nil)
			}

			ticket, err := svc.Redeem(context.Background(), tt.code, tt.contentID, &staff)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, ticket)
				return
			}
			require.NoError(t, err)
			assert.True(t, ticket.IsUsed())
		})
	}

	t.Run("missing input", func(t *testing.T) {
		svc := NewRedemptionService(new(mockTicketStore), discardLogger())

		_, err := svc.Redeem(context.Background(), "", contentA, nil)
		assert.True(t, models.IsValidationError(err))

		_, err = svc.Redeem(context.Background(), "AAAA-BBBB", " ", nil)
		assert.True(t, models.IsValidationError(err))
	})
}
