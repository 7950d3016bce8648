package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vr-theatre-marketplace/internal/models"
)

// GroupReceipt is an order group as shown to the buyer
type GroupReceipt struct {
	*models.OrderGroup
	Tickets []*models.Ticket `json:"tickets"`
}

// OrderReceipt is a standalone order as shown to the buyer
type OrderReceipt struct {
	*models.Order
	Tickets []*models.Ticket `json:"tickets"`
}

// OrderService handles order lookups and pending order housekeeping
type OrderService struct {
	orders  OrderStore
	tickets TicketStore
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewOrderService creates a new order service. Pending orders older than ttl
// are removed by ExpireStale.
func NewOrderService(orders OrderStore, tickets TicketStore, ttl time.Duration, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders:  orders,
		tickets: tickets,
		ttl:     ttl,
		logger:  logger.With("component", "orders"),
		now:     time.Now,
	}
}

// GetGroupReceipt returns a group with its orders, and its tickets once paid
func (s *OrderService) GetGroupReceipt(ctx context.Context, id string) (*GroupReceipt, error) {
	group, err := s.orders.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}

	receipt := &GroupReceipt{OrderGroup: group, Tickets: []*models.Ticket{}}
	if !group.IsPaid() {
		return receipt, nil
	}

	ids := make([]string, 0, len(group.Orders))
	for _, o := range group.Orders {
		ids = append(ids, o.ID)
	}
	tickets, err := s.tickets.ListByOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	receipt.Tickets = tickets
	return receipt, nil
}

// GetOrderReceipt returns an order and its tickets once paid
func (s *OrderService) GetOrderReceipt(ctx context.Context, id string) (*OrderReceipt, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	receipt := &OrderReceipt{Order: order, Tickets: []*models.Ticket{}}
	if !order.IsPaid() {
		return receipt, nil
	}

	tickets, err := s.tickets.ListByOrders(ctx, []string{order.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets: %w", err)
	}
	receipt.Tickets = tickets
	return receipt, nil
}

// ExpireStale deletes pending groups and orders created before now - ttl
func (s *OrderService) ExpireStale(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}

	cutoff := s.now().Add(-s.ttl)
	groups, orders, err := s.orders.DeleteExpiredPending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to expire pending orders: %w", err)
	}

	if groups > 0 || orders > 0 {
		s.logger.InfoContext(ctx, "expired pending orders",
			"groups", groups,
			"orders", orders,
			"cutoff", cutoff)
	}
	return nil
}
