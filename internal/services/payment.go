package services

import (
	"context"
	"fmt"
	"strings"

	"vr-theatre-marketplace/internal/models"
)

// PaymentMethod is how a checkout is settled
type PaymentMethod string

const (
	// PaymentStripe opens a hosted checkout session and settles through the webhook
	PaymentStripe PaymentMethod = "stripe"
	// PaymentManual skips the gateway and fulfils immediately
	PaymentManual PaymentMethod = "manual"
)

// ParsePaymentMethod normalizes a requested method. Empty means stripe.
// Unknown methods are returned as-is and rejected later as not supported.
func ParsePaymentMethod(s string) PaymentMethod {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PaymentStripe
	}
	return PaymentMethod(s)
}

// CheckoutLine is one priced line sent to the gateway
type CheckoutLine struct {
	Name       string
	UnitAmount int64 // in cents
	Quantity   int64
}

// CheckoutRequest describes the hosted session to open
type CheckoutRequest struct {
	// ReferenceKey is "order_group_id" or "order_id"
	ReferenceKey  string
	Reference     string
	CustomerEmail string
	Currency      string
	Lines         []CheckoutLine
	// FeesAmount is charged as one extra "Fees & taxes" line
	FeesAmount int64
	SuccessURL string
	CancelURL  string
}

// Total is what the buyer will be charged
func (r CheckoutRequest) Total() int64 {
	total := r.FeesAmount
	for _, l := range r.Lines {
		total += l.UnitAmount * l.Quantity
	}
	return total
}

// CheckoutSession is a created hosted session
type CheckoutSession struct {
	ID  string
	URL string
}

// Gateway creates hosted checkout sessions at the payment processor
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// returnURLs derives the buyer's landing pages from the public app url
func returnURLs(appURL, path string) (success, cancel string) {
	base := strings.TrimSuffix(appURL, "/")
	success = fmt.Sprintf("%s%s?checkout=success&session_id={CHECKOUT_SESSION_ID}", base, path)
	cancel = fmt.Sprintf("%s%s?checkout=cancelled", base, path)
	return success, cancel
}

func groupCheckoutRequest(group *models.OrderGroup, titles map[string]string, settings *models.Settings) CheckoutRequest {
	req := CheckoutRequest{
		ReferenceKey:  "order_group_id",
		Reference:     group.ID,
		CustomerEmail: group.BuyerEmail,
		Currency:      group.Currency,
		FeesAmount:    group.FeesAmount(),
	}
	req.SuccessURL, req.CancelURL = returnURLs(settings.AppURL, "/order-group/"+group.ID)

	for _, o := range group.Orders {
		req.Lines = append(req.Lines, CheckoutLine{
			Name:       lineName(titles[o.ContentID], o.TicketType),
			UnitAmount: o.TotalAmount / int64(o.Quantity),
			Quantity:   int64(o.Quantity),
		})
	}
	return req
}

func orderCheckoutRequest(order *models.Order, line models.PricedLine, settings *models.Settings) CheckoutRequest {
	req := CheckoutRequest{
		ReferenceKey:  "order_id",
		Reference:     order.ID,
		CustomerEmail: order.BuyerEmail,
		Currency:      order.Currency,
		Lines: []CheckoutLine{{
			Name:       lineName(line.Title, line.TicketType),
			UnitAmount: line.UnitPriceCents,
			Quantity:   int64(line.Quantity),
		}},
		FeesAmount: order.TotalAmount - line.Subtotal(),
	}
	// the price went up since the order was taken; charge the recorded total as one line
	if req.FeesAmount < 0 {
		req.Lines = []CheckoutLine{{
			Name:       fmt.Sprintf("%s x%d", lineName(line.Title, line.TicketType), line.Quantity),
			UnitAmount: order.TotalAmount,
			Quantity:   1,
		}}
		req.FeesAmount = 0
	}
	req.SuccessURL, req.CancelURL = returnURLs(settings.AppURL, "/orders/"+order.ID)
	return req
}

func lineName(title string, tier models.TicketType) string {
	if title == "" {
		title = "VR performance"
	}
	return fmt.Sprintf("%s (%s)", title, strings.ToUpper(string(tier)))
}
