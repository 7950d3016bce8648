package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vr-theatre-marketplace/internal/models"
)

// CartCheckoutRequest is a multi-line checkout
type CartCheckoutRequest struct {
	Lines      []models.CartLine
	BuyerEmail string
	Method     PaymentMethod
	Identity   *models.Identity
}

// PurchaseRequest is a single-line purchase
type PurchaseRequest struct {
	Line       models.CartLine
	BuyerEmail string
	Method     PaymentMethod
	Identity   *models.Identity
}

// CheckoutResult is what a checkout produced
type CheckoutResult struct {
	OrderGroupID string             `json:"order_group_id,omitempty"`
	OrderID      string             `json:"order_id,omitempty"`
	Status       models.OrderStatus `json:"status"`
	Method       PaymentMethod      `json:"method"`
	CheckoutURL  string             `json:"checkout_url,omitempty"`
	SessionID    string             `json:"session_id,omitempty"`
	Currency     string             `json:"currency"`
	Breakdown    models.Breakdown   `json:"breakdown"`
	Tickets      []*models.Ticket   `json:"tickets,omitempty"`
}

// CartQuote is a read-only price preview
type CartQuote struct {
	Lines     []models.PricedLine `json:"lines"`
	Currency  string              `json:"currency"`
	Breakdown models.Breakdown    `json:"breakdown"`
}

// CheckoutService builds orders from carts and settles them
type CheckoutService struct {
	contents    ContentStore
	orders      OrderStore
	settings    SettingsStore
	gateway     Gateway
	fulfillment Fulfiller
	logger      *slog.Logger

	newID func() string
	now   func() time.Time
}

// NewCheckoutService creates a checkout service. gateway may be nil when no
// processor is configured; stripe checkouts then fail as unavailable.
func NewCheckoutService(contents ContentStore, orders OrderStore, settings SettingsStore, gateway Gateway, fulfillment Fulfiller, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		contents:    contents,
		orders:      orders,
		settings:    settings,
		gateway:     gateway,
		fulfillment: fulfillment,
		logger:      logger.With("component", "checkout"),
		newID:       uuid.NewString,
		now:         time.Now,
	}
}

// resolveBuyerEmail picks the explicit email, else the identity's
func resolveBuyerEmail(email string, identity *models.Identity) (string, error) {
	if strings.TrimSpace(email) == "" && identity != nil {
		email = identity.Email
	}
	return models.NormalizeEmail(email)
}

// priceLines resolves every line against the ledger. Quantities are clamped
// to the per-line limits and capacity is checked on the combined demand per
// content.
func (s *CheckoutService) priceLines(ctx context.Context, lines []models.CartLine) ([]models.PricedLine, error) {
	if len(lines) == 0 {
		return nil, models.NewValidationError("lines", "cart is empty")
	}

	ids := make([]string, 0, len(lines))
	for i := range lines {
		id := strings.ToLower(strings.TrimSpace(lines[i].ContentID))
		if id == "" {
			return nil, models.NewValidationError(fmt.Sprintf("lines[%d].content_id", i), "content id is required")
		}
		ids = append(ids, id)
	}

	avail, err := s.contents.ListAvailability(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}

	priced := make([]models.PricedLine, 0, len(lines))
	for i, line := range lines {
		a, ok := avail[ids[i]]
		if !ok {
			return nil, fmt.Errorf("%w: %s", models.ErrContentNotFound, ids[i])
		}

		tier, err := models.ParseTicketType(line.TicketType)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, line.TicketType)
		}
		price, err := a.UnitPrices.For(tier)
		if err != nil {
			return nil, err
		}

		priced = append(priced, models.PricedLine{
			ContentID:      ids[i],
			Title:          a.Title,
			TicketType:     tier,
			UnitPriceCents: price,
			Quantity:       models.ClampQuantity(line.Quantity),
		})
	}

	demand := models.DemandByContent(priced)
	for _, l := range priced {
		a := avail[l.ContentID]
		if want, pending := demand[l.ContentID]; pending {
			if !a.CanCover(want) {
				return nil, &models.InsufficientInventoryError{
					ContentID: l.ContentID,
					Title:     a.Title,
					Requested: want,
					Available: a.Available,
				}
			}
			delete(demand, l.ContentID)
		}
	}

	return priced, nil
}

func (s *CheckoutService) loadSettings(ctx context.Context) (*models.Settings, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// QuoteCart prices a cart without writing anything
func (s *CheckoutService) QuoteCart(ctx context.Context, lines []models.CartLine) (*CartQuote, error) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}
	priced, err := s.priceLines(ctx, lines)
	if err != nil {
		return nil, err
	}
	return &CartQuote{
		Lines:     priced,
		Currency:  settings.CurrencyOrDefault(),
		Breakdown: Quote(priced, settings),
	}, nil
}

// BuildGroup validates a cart and persists a pending group with one order
// per line. Nothing is written when any line fails.
func (s *CheckoutService) BuildGroup(ctx context.Context, lines []models.CartLine, buyerEmail string, identity *models.Identity, settings *models.Settings) (*models.OrderGroup, error) {
	group, _, err := s.buildGroup(ctx, lines, buyerEmail, identity, settings)
	return group, err
}

func (s *CheckoutService) buildGroup(ctx context.Context, lines []models.CartLine, buyerEmail string, identity *models.Identity, settings *models.Settings) (*models.OrderGroup, []models.PricedLine, error) {
	email, err := resolveBuyerEmail(buyerEmail, identity)
	if err != nil {
		return nil, nil, err
	}
	priced, err := s.priceLines(ctx, lines)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	currency := settings.CurrencyOrDefault()
	group := &models.OrderGroup{
		ID:         s.newID(),
		BuyerID:    identity.IDPtr(),
		BuyerEmail: email,
		Currency:   currency,
		Status:     models.OrderPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	group.ApplyBreakdown(Quote(priced, settings))

	for _, l := range priced {
		group.Orders = append(group.Orders, &models.Order{
			ID:           s.newID(),
			ContentID:    l.ContentID,
			BuyerID:      identity.IDPtr(),
			BuyerEmail:   email,
			TicketType:   l.TicketType,
			Quantity:     l.Quantity,
			TotalAmount:  l.Subtotal(),
			Currency:     currency,
			Status:       models.OrderPending,
			OrderGroupID: &group.ID,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	if err := group.Validate(); err != nil {
		return nil, nil, fmt.Errorf("order group %s is inconsistent: %w", group.ID, err)
	}
	if err := s.orders.CreateGroup(ctx, group, group.Orders); err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "order group created",
		"order_group_id", group.ID,
		"orders", len(group.Orders),
		"total", group.TotalAmount)
	return group, priced, nil
}

// BuildSingle validates one line and persists a pending standalone order.
// Its total includes the fees computed on that line alone.
func (s *CheckoutService) BuildSingle(ctx context.Context, line models.CartLine, buyerEmail string, identity *models.Identity, settings *models.Settings) (*models.Order, error) {
	order, _, _, err := s.buildSingle(ctx, line, buyerEmail, identity, settings)
	return order, err
}

func (s *CheckoutService) buildSingle(ctx context.Context, line models.CartLine, buyerEmail string, identity *models.Identity, settings *models.Settings) (*models.Order, models.PricedLine, models.Breakdown, error) {
	email, err := resolveBuyerEmail(buyerEmail, identity)
	if err != nil {
		return nil, models.PricedLine{}, models.Breakdown{}, err
	}
	priced, err := s.priceLines(ctx, []models.CartLine{line})
	if err != nil {
		return nil, models.PricedLine{}, models.Breakdown{}, err
	}

	l := priced[0]
	breakdown := Quote(priced, settings)
	now := s.now()
	order := &models.Order{
		ID:          s.newID(),
		ContentID:   l.ContentID,
		BuyerID:     identity.IDPtr(),
		BuyerEmail:  email,
		TicketType:  l.TicketType,
		Quantity:    l.Quantity,
		TotalAmount: breakdown.Total,
		Currency:    settings.CurrencyOrDefault(),
		Status:      models.OrderPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, models.PricedLine{}, models.Breakdown{}, err
	}

	s.logger.InfoContext(ctx, "order created", "order_id", order.ID, "total", order.TotalAmount)
	return order, l, breakdown, nil
}

// CheckoutCart builds a group and settles it with the requested method
func (s *CheckoutService) CheckoutCart(ctx context.Context, req CartCheckoutRequest) (*CheckoutResult, error) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	group, priced, err := s.buildGroup(ctx, req.Lines, req.BuyerEmail, req.Identity, settings)
	if err != nil {
		return nil, err
	}

	titles := make(map[string]string, len(priced))
	for _, l := range priced {
		titles[l.ContentID] = l.Title
	}
	return s.settleGroup(ctx, group, titles, settings, req.Method)
}

// Purchase builds a standalone order and settles it with the requested method
func (s *CheckoutService) Purchase(ctx context.Context, req PurchaseRequest) (*CheckoutResult, error) {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	order, line, breakdown, err := s.buildSingle(ctx, req.Line, req.BuyerEmail, req.Identity, settings)
	if err != nil {
		return nil, err
	}

	return s.settleOrder(ctx, order, line, breakdown, settings, req.Method)
}

// PayOrder retries payment for a pending standalone order. The recorded
// total is charged even if prices changed since the order was taken.
func (s *CheckoutService) PayOrder(ctx context.Context, orderID string, method PaymentMethod) (*CheckoutResult, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.OrderGroupID != nil {
		return nil, models.NewValidationError("id", "order belongs to a group; pay the group instead")
	}
	if order.IsPaid() {
		return nil, models.ErrAlreadyFulfilled
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	a, err := s.contents.GetAvailability(ctx, order.ContentID)
	if err != nil {
		return nil, err
	}
	price, err := a.UnitPrices.For(order.TicketType)
	if err != nil {
		return nil, err
	}
	line := models.PricedLine{
		ContentID:      order.ContentID,
		Title:          a.Title,
		TicketType:     order.TicketType,
		UnitPriceCents: price,
		Quantity:       order.Quantity,
	}

	breakdown := Quote([]models.PricedLine{line}, settings)
	if breakdown.Total != order.TotalAmount {
		s.logger.InfoContext(ctx, "order priced under older settings", "order_id", order.ID,
			"recorded_total", order.TotalAmount, "current_total", breakdown.Total)
		breakdown = models.Breakdown{Subtotal: min(line.Subtotal(), order.TotalAmount), Total: order.TotalAmount}
	}

	return s.settleOrder(ctx, order, line, breakdown, settings, method)
}

func (s *CheckoutService) settleOrder(ctx context.Context, order *models.Order, line models.PricedLine, breakdown models.Breakdown, settings *models.Settings, method PaymentMethod) (*CheckoutResult, error) {
	result := &CheckoutResult{
		OrderID:   order.ID,
		Status:    models.OrderPending,
		Method:    method,
		Currency:  order.Currency,
		Breakdown: breakdown,
	}
	fail := func(err error) error {
		return &models.PaymentError{Err: err, OrderID: order.ID}
	}

	switch method {
	case PaymentStripe:
		sess, err := s.openSession(ctx, orderCheckoutRequest(order, line, settings))
		if err != nil {
			return nil, fail(err)
		}
		if err := s.orders.AttachOrderSession(ctx, order.ID, sess.ID); err != nil {
			return nil, fmt.Errorf("failed to record payment session: %w", err)
		}
		result.CheckoutURL, result.SessionID = sess.URL, sess.ID

	case PaymentManual:
		tickets, err := s.fulfillment.FulfillOrder(ctx, order.ID, FulfillStrict)
		if err != nil {
			return nil, fail(err)
		}
		result.Status, result.Tickets = models.OrderPaid, tickets

	default:
		return nil, fail(fmt.Errorf("%w: %s", models.ErrNotSupported, method))
	}

	return result, nil
}

// PayGroup retries payment for a pending group, e.g. after the gateway was
// unavailable or with a different method
func (s *CheckoutService) PayGroup(ctx context.Context, groupID string, method PaymentMethod) (*CheckoutResult, error) {
	group, err := s.orders.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.IsPaid() {
		return nil, models.ErrAlreadyFulfilled
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(group.Orders))
	for _, o := range group.Orders {
		ids = append(ids, o.ContentID)
	}
	titles := make(map[string]string, len(ids))
	if avail, err := s.contents.ListAvailability(ctx, ids); err != nil {
		s.logger.WarnContext(ctx, "failed to load content titles", "order_group_id", groupID, "error", err)
	} else {
		for id, a := range avail {
			titles[id] = a.Title
		}
	}

	return s.settleGroup(ctx, group, titles, settings, method)
}

func (s *CheckoutService) settleGroup(ctx context.Context, group *models.OrderGroup, titles map[string]string, settings *models.Settings, method PaymentMethod) (*CheckoutResult, error) {
	result := &CheckoutResult{
		OrderGroupID: group.ID,
		Status:       models.OrderPending,
		Method:       method,
		Currency:     group.Currency,
		Breakdown: models.Breakdown{
			Subtotal:   group.SubtotalAmount,
			ServiceFee: group.ServiceFeeAmount,
			PaymentFee: group.PaymentFeeAmount,
			Tax:        group.TaxAmount,
			Total:      group.TotalAmount,
		},
	}
	fail := func(err error) error {
		return &models.PaymentError{Err: err, OrderGroupID: group.ID}
	}

	switch method {
	case PaymentStripe:
		sess, err := s.openSession(ctx, groupCheckoutRequest(group, titles, settings))
		if err != nil {
			return nil, fail(err)
		}
		if err := s.orders.AttachGroupSession(ctx, group.ID, sess.ID); err != nil {
			return nil, fmt.Errorf("failed to record payment session: %w", err)
		}
		result.CheckoutURL, result.SessionID = sess.URL, sess.ID

	case PaymentManual:
		tickets, err := s.fulfillment.FulfillGroup(ctx, group.ID, FulfillStrict)
		if err != nil {
			return nil, fail(err)
		}
		result.Status, result.Tickets = models.OrderPaid, tickets

	default:
		return nil, fail(fmt.Errorf("%w: %s", models.ErrNotSupported, method))
	}

	return result, nil
}

// openSession asks the gateway for a hosted session. Every failure is
// reported as models.ErrPaymentGatewayUnavailable; the order stays pending.
func (s *CheckoutService) openSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: no payment processor configured", models.ErrPaymentGatewayUnavailable)
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "payment gateway unavailable", req.ReferenceKey, req.Reference, "error", err)
		if !errors.Is(err, models.ErrPaymentGatewayUnavailable) {
			err = fmt.Errorf("%w: %v", models.ErrPaymentGatewayUnavailable, err)
		}
		return nil, err
	}
	return sess, nil
}
