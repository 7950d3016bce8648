package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"vr-theatre-marketplace/internal/models"
)

const (
	eventCheckoutCompleted     = "checkout.session.completed"
	eventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// WebhookService settles checkouts from signed Stripe events
type WebhookService struct {
	secret      string
	events      PaymentEventStore
	guard       WebhookGuard
	orders      OrderStore
	fulfillment Fulfiller
	logger      *slog.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(secret string, events PaymentEventStore, guard WebhookGuard, orders OrderStore, fulfillment Fulfiller, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		secret:      secret,
		events:      events,
		guard:       guard,
		orders:      orders,
		fulfillment: fulfillment,
		logger:      logger.With("component", "webhook"),
	}
}

// HandleEvent verifies and processes one delivery. A nil error means the
// delivery can be acknowledged, including duplicates and ignored events.
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := s.verify(payload, sigHeader)
	if err != nil {
		return err
	}

	log := s.logger.With("event_id", event.ID, "event_type", string(event.Type))

	switch string(event.Type) {
	case eventCheckoutCompleted, eventAsyncPaymentSucceeded:
	default:
		log.DebugContext(ctx, "ignoring webhook event")
		return nil
	}

	var sess stripe.CheckoutSession
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &sess) != nil || sess.ID == "" {
		return models.NewValidationError("data", "event does not carry a checkout session")
	}
	log = log.With("session_id", sess.ID)

	// completed fires before async methods settle; those arrive as async_payment_succeeded
	if string(event.Type) == eventCheckoutCompleted &&
		sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid &&
		sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
		log.InfoContext(ctx, "checkout completed without payment, waiting", "payment_status", string(sess.PaymentStatus))
		return nil
	}

	unlock, err := s.guard.Lock(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("failed to lock session %s: %w", sess.ID, err)
	}
	defer unlock()

	seen, err := s.seen(ctx, event.ID)
	if err != nil {
		return err
	}
	if seen {
		log.InfoContext(ctx, "duplicate webhook event")
		return nil
	}

	if err := s.settle(ctx, log, &sess); err != nil {
		return err
	}

	// recorded only after settling, so a failed or interrupted delivery is retried in full
	s.remember(context.WithoutCancel(ctx), event, sess.ID)
	return nil
}

// verify checks the signature and decodes the event
func (s *WebhookService) verify(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err == nil {
		return event, nil
	}

	switch {
	case errors.Is(err, webhook.ErrNotSigned),
		errors.Is(err, webhook.ErrInvalidHeader),
		errors.Is(err, webhook.ErrNoValidSignature),
		errors.Is(err, webhook.ErrTooOld):
		s.logger.Warn("webhook signature rejected", "error", err)
		return stripe.Event{}, models.ErrSignatureVerification
	default:
		return stripe.Event{}, models.NewValidationError("payload", "malformed event payload")
	}
}

// seen consults the fast guard and then the durable log. A guard outage
// falls back to the log alone.
func (s *WebhookService) seen(ctx context.Context, eventID string) (bool, error) {
	seen, err := s.guard.Seen(ctx, eventID)
	if err != nil {
		s.logger.WarnContext(ctx, "webhook dedup cache unavailable", "event_id", eventID, "error", err)
	}
	if seen {
		return true, nil
	}

	seen, err = s.events.Seen(ctx, eventID)
	if err != nil {
		return false, err
	}
	return seen, nil
}

// remember records a settled event in both dedup stores. Failures only cost a
// redundant redelivery, which the paid-status check absorbs.
func (s *WebhookService) remember(ctx context.Context, event stripe.Event, sessionID string) {
	if _, err := s.guard.MarkSeen(ctx, event.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to cache webhook event", "event_id", event.ID, "error", err)
	}
	if _, err := s.events.Record(ctx, event.ID, string(event.Type), sessionID); err != nil {
		s.logger.WarnContext(ctx, "failed to record payment event", "event_id", event.ID, "error", err)
	}
}

// settle resolves the session to a group or a standalone order and fulfils it
func (s *WebhookService) settle(ctx context.Context, log *slog.Logger, sess *stripe.CheckoutSession) error {
	group, err := s.orders.GetGroupBySession(ctx, sess.ID)
	switch {
	case err == nil:
		return s.fulfil(ctx, log.With("order_group_id", group.ID), group.IsPaid(), func() error {
			_, err := s.fulfillment.FulfillGroup(ctx, group.ID, FulfillLenient)
			return err
		})
	case !errors.Is(err, models.ErrNotFound):
		return err
	}

	order, err := s.orders.GetOrderBySession(ctx, sess.ID)
	switch {
	case err == nil:
		return s.fulfil(ctx, log.With("order_id", order.ID), order.IsPaid(), func() error {
			_, err := s.fulfillment.FulfillOrder(ctx, order.ID, FulfillLenient)
			return err
		})
	case !errors.Is(err, models.ErrNotFound):
		return err
	}

	// the session may have been replaced by a later retry; metadata still names the target
	if id := sess.Metadata["order_group_id"]; id != "" {
		return s.fulfil(ctx, log.With("order_group_id", id), false, func() error {
			_, err := s.fulfillment.FulfillGroup(ctx, id, FulfillLenient)
			return err
		})
	}
	if id := sess.Metadata["order_id"]; id != "" {
		return s.fulfil(ctx, log.With("order_id", id), false, func() error {
			_, err := s.fulfillment.FulfillOrder(ctx, id, FulfillLenient)
			return err
		})
	}

	log.WarnContext(ctx, "webhook for unknown checkout session")
	return nil
}

func (s *WebhookService) fulfil(ctx context.Context, log *slog.Logger, alreadyPaid bool, run func() error) error {
	if alreadyPaid {
		log.InfoContext(ctx, "checkout already fulfilled")
		return nil
	}

	err := run()
	switch {
	case err == nil:
		log.InfoContext(ctx, "checkout fulfilled from webhook")
		return nil
	case errors.Is(err, models.ErrAlreadyFulfilled):
		log.InfoContext(ctx, "checkout already fulfilled")
		return nil
	case errors.Is(err, models.ErrNotFound):
		// nothing left to fulfil or retry; operations must refund by hand
		log.ErrorContext(ctx, "CRITICAL: payment captured for a checkout that no longer exists", "error", err)
		return nil
	default:
		log.ErrorContext(ctx, "CRITICAL: payment captured but fulfillment failed", "error", err)
		return err
	}
}
