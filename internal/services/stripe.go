package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"vr-theatre-marketplace/internal/models"
)

// StripeConfig represents Stripe payment service configuration
type StripeConfig struct {
	SecretKey string
	Timeout   time.Duration
}

type checkoutSessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeGateway opens Stripe hosted checkout sessions
type StripeGateway struct {
	sessions checkoutSessionCreator
	timeout  time.Duration
	logger   *slog.Logger
}

// NewStripeGateway creates a gateway backed by the Stripe API
func NewStripeGateway(cfg StripeConfig, logger *slog.Logger) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	backends := stripe.NewBackends(&http.Client{Timeout: cfg.Timeout})
	sc := client.New(cfg.SecretKey, backends)

	return newStripeGateway(sc.CheckoutSessions, cfg.Timeout, logger), nil
}

func newStripeGateway(sessions checkoutSessionCreator, timeout time.Duration, logger *slog.Logger) *StripeGateway {
	return &StripeGateway{
		sessions: sessions,
		timeout:  timeout,
		logger:   logger.With("component", "stripe_gateway"),
	}
}

// CreateCheckoutSession opens a hosted payment page for the request. Any
// failure to reach Stripe is reported as models.ErrPaymentGatewayUnavailable.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		CustomerEmail:     stripe.String(req.CustomerEmail),
		ClientReferenceID: stripe.String(req.Reference),
	}
	params.Context = ctx
	params.AddMetadata(req.ReferenceKey, req.Reference)

	for _, l := range req.Lines {
		params.LineItems = append(params.LineItems, stripeLineItem(req.Currency, l.Name, l.UnitAmount, l.Quantity))
	}
	if req.FeesAmount > 0 {
		params.LineItems = append(params.LineItems, stripeLineItem(req.Currency, "Fees & taxes", req.FeesAmount, 1))
	}

	sess, err := g.sessions.New(params)
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to create checkout session",
			req.ReferenceKey, req.Reference,
			"amount", req.Total(),
			"error", describeStripeError(err))
		return nil, fmt.Errorf("%w: %v", models.ErrPaymentGatewayUnavailable, err)
	}

	g.logger.InfoContext(ctx, "checkout session created",
		req.ReferenceKey, req.Reference,
		"session_id", sess.ID,
		"amount", req.Total())

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func stripeLineItem(currency, name string, unitAmount, quantity int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
			UnitAmount: stripe.Int64(unitAmount),
		},
		Quantity: stripe.Int64(quantity),
	}
}

func describeStripeError(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Sprintf("%s (type=%s code=%s request=%s)", stripeErr.Msg, stripeErr.Type, stripeErr.Code, stripeErr.RequestID)
	}
	return err.Error()
}
