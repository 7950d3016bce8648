package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"vr-theatre-marketplace/internal/models"
)

// stripe signs payloads up to 64KB; anything bigger is not from them
const maxWebhookBytes = 65536

// WebhookProcessor verifies and applies payment processor events
type WebhookProcessor interface {
	HandleEvent(ctx context.Context, payload []byte, sigHeader string) error
}

// WebhookHandler receives payment processor callbacks
type WebhookHandler struct {
	processor WebhookProcessor
	logger    *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(processor WebhookProcessor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, logger: logger.With("component", "webhook_handler")}
}

// PaymentWebhook handles POST /payment-webhook. A non-2xx answer makes the
// processor redeliver, so only retryable failures return 500.
func (h *WebhookHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		respondError(w, r, h.logger, models.NewValidationError("body", "unreadable request body"))
		return
	}

	if err := h.processor.HandleEvent(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
