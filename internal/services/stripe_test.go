package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"vr-theatre-marketplace/internal/models"
)

type fakeSessions struct {
	params *stripe.CheckoutSessionParams
	sess   *stripe.CheckoutSession
	err    error
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	return f.sess, f.err
}

func sampleCheckoutRequest() CheckoutRequest {
	req := CheckoutRequest{
		ReferenceKey:  "order_group_id",
		Reference:     "g-1",
		CustomerEmail: "buyer@example.com",
		Currency:      "eur",
		Lines: []CheckoutLine{
			{Name: "Hamlet VR (STANDARD)", UnitAmount: 1000, Quantity: 2},
			{Name: "Tempest VR (VIP)", UnitAmount: 1500, Quantity: 1},
		},
		FeesAmount: 1198,
	}
	req.SuccessURL, req.CancelURL = returnURLs("https://vr.example/", "/order-group/g-1")
	return req
}

func TestStripeGateway_CreateCheckoutSession(t *testing.T) {
	sessions := &fakeSessions{sess: &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}}
	gw := newStripeGateway(sessions, 5*time.Second, discardLogger())

	sess, err := gw.CreateCheckoutSession(context.Background(), sampleCheckoutRequest())

	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.URL)

	p := sessions.params
	require.NotNil(t, p)
	assert.Equal(t, "payment", *p.Mode)
	assert.Equal(t, "g-1", *p.ClientReferenceID)
	assert.Equal(t, "g-1", p.Metadata["order_group_id"])
	assert.Equal(t, "https://vr.example/order-group/g-1?checkout=success&session_id={CHECKOUT_SESSION_ID}", *p.SuccessURL)
	assert.NotNil(t, p.Context)

	require.Len(t, p.LineItems, 3)
	var total int64
	for _, li := range p.LineItems {
		assert.Equal(t, "eur", *li.PriceData.Currency)
		total += *li.PriceData.UnitAmount * *li.Quantity
	}
	assert.Equal(t, int64(4698), total)
	assert.Equal(t, "Fees & taxes", *p.LineItems[2].PriceData.ProductData.Name)
}

func TestStripeGateway_NoFeesLine(t *testing.T) {
	sessions := &fakeSessions{sess: &stripe.CheckoutSession{ID: "cs_2"}}
	req := sampleCheckoutRequest()
	req.FeesAmount = 0

	_, err := newStripeGateway(sessions, time.Second, discardLogger()).CreateCheckoutSession(context.Background(), req)

	require.NoError(t, err)
	assert.Len(t, sessions.params.LineItems, 2)
}

func TestStripeGateway_Unavailable(t *testing.T) {
	sessions := &fakeSessions{err: &stripe.Error{Msg: "Invalid API Key provided", Type: stripe.ErrorTypeInvalidRequest}}

	_, err := newStripeGateway(sessions, time.Second, discardLogger()).CreateCheckoutSession(context.Background(), sampleCheckoutRequest())

	require.ErrorIs(t, err, models.ErrPaymentGatewayUnavailable)
	assert.Contains(t, describeStripeError(sessions.err), "invalid_request_error")
	assert.Equal(t, "plain", describeStripeError(errors.New("plain")))
}

func TestNewStripeGateway_RequiresKey(t *testing.T) {
	_, err := NewStripeGateway(StripeConfig{}, discardLogger())
	assert.Error(t, err)

	gw, err := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123"}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, gw.timeout)
}

func TestParsePaymentMethod(t *testing.T) {
	assert.Equal(t, PaymentStripe, ParsePaymentMethod(""))
	assert.Equal(t, PaymentManual, ParsePaymentMethod(" Manual "))
	assert.Equal(t, PaymentMethod("paypal"), ParsePaymentMethod("paypal"))
}

func TestOrderCheckoutRequest_ChargesQuoteTotal(t *testing.T) {
	order := &models.Order{ID: "o-1", BuyerEmail: "a@b.io", Currency: "eur", TotalAmount: 2738}
	line := models.PricedLine{Title: "Hamlet VR", TicketType: models.TicketStandard, UnitPriceCents: 1000, Quantity: 2}

	req := orderCheckoutRequest(order, line, exampleSettings())

	assert.Equal(t, int64(2738), req.Total())
	assert.Equal(t, int64(738), req.FeesAmount)
	assert.Equal(t, "order_id", req.ReferenceKey)
	assert.Contains(t, req.SuccessURL, "/orders/o-1")
}
