package models

import (
	"regexp"
	"strings"
	"time"
)

// OrderStatus represents the status of an order or order group
type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
)

const (
	MinLineQuantity = 1
	MaxLineQuantity = 10
)

// Order represents one cart line's purchase intent
type Order struct {
	ID               string      `json:"id" db:"id"`
	ContentID        string      `json:"content_id" db:"content_id"`
	BuyerID          *string     `json:"buyer_id,omitempty" db:"buyer_id"`
	BuyerEmail       string      `json:"buyer_email" db:"buyer_email"`
	TicketType       TicketType  `json:"ticket_type" db:"ticket_type"`
	Quantity         int         `json:"quantity" db:"quantity"`
	TotalAmount      int64       `json:"total_amount" db:"total_amount_cents"` // Amount in cents
	Currency         string      `json:"currency" db:"currency"`
	Status           OrderStatus `json:"status" db:"status"`
	PaymentSessionID *string     `json:"payment_session_id,omitempty" db:"payment_session_id"`
	OrderGroupID     *string     `json:"order_group_id,omitempty" db:"order_group_id"`
	PaidAt           *time.Time  `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// OrderGroup aggregates the orders of one cart checkout with its fee breakdown
type OrderGroup struct {
	ID               string      `json:"id" db:"id"`
	BuyerID          *string     `json:"buyer_id,omitempty" db:"buyer_id"`
	BuyerEmail       string      `json:"buyer_email" db:"buyer_email"`
	SubtotalAmount   int64       `json:"subtotal_amount" db:"subtotal_cents"`
	ServiceFeeAmount int64       `json:"service_fee_amount" db:"service_fee_cents"`
	PaymentFeeAmount int64       `json:"payment_fee_amount" db:"payment_fee_cents"`
	TaxAmount        int64       `json:"tax_amount" db:"tax_cents"`
	TotalAmount      int64       `json:"total_amount" db:"total_cents"`
	Currency         string      `json:"currency" db:"currency"`
	Status           OrderStatus `json:"status" db:"status"`
	PaymentSessionID *string     `json:"payment_session_id,omitempty" db:"payment_session_id"`
	PaidAt           *time.Time  `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`

	Orders []*Order `json:"orders,omitempty" db:"-"`
}

// IsPending checks if the order is pending
func (o *Order) IsPending() bool {
	return o.Status == OrderPending
}

// IsPaid checks if the order has been paid
func (o *Order) IsPaid() bool {
	return o.Status == OrderPaid
}

// IsPending checks if the group is pending
func (g *OrderGroup) IsPending() bool {
	return g.Status == OrderPending
}

// IsPaid checks if the group has been paid
func (g *OrderGroup) IsPaid() bool {
	return g.Status == OrderPaid
}

// ApplyBreakdown copies a fee breakdown onto the group.
func (g *OrderGroup) ApplyBreakdown(b Breakdown) {
	g.SubtotalAmount = b.Subtotal
	g.ServiceFeeAmount = b.ServiceFee
	g.PaymentFeeAmount = b.PaymentFee
	g.TaxAmount = b.Tax
	g.TotalAmount = b.Total
}

// FeesAmount is everything charged on top of the subtotal.
func (g *OrderGroup) FeesAmount() int64 {
	return g.ServiceFeeAmount + g.PaymentFeeAmount + g.TaxAmount
}

// Validate checks the group's money invariants
func (g *OrderGroup) Validate() error {
	if g.SubtotalAmount < 0 || g.ServiceFeeAmount < 0 || g.PaymentFeeAmount < 0 || g.TaxAmount < 0 {
		return NewValidationError("total_amount", "amounts cannot be negative")
	}
	if g.TotalAmount != g.SubtotalAmount+g.FeesAmount() {
		return NewValidationError("total_amount", "total does not match its breakdown")
	}
	if len(g.Orders) > 0 {
		var sum int64
		for _, o := range g.Orders {
			sum += o.TotalAmount
		}
		if sum != g.SubtotalAmount {
			return NewValidationError("subtotal_amount", "orders do not add up to the subtotal")
		}
	}
	return nil
}

// ClampQuantity forces a line quantity into [MinLineQuantity, MaxLineQuantity].
func ClampQuantity(qty int) int {
	if qty < MinLineQuantity {
		return MinLineQuantity
	}
	if qty > MaxLineQuantity {
		return MaxLineQuantity
	}
	return qty
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail trims and lower-cases an address and checks its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrMissingBuyerEmail
	}
	if !emailRegex.MatchString(email) {
		return "", NewValidationError("email", "invalid email format")
	}
	return email, nil
}
